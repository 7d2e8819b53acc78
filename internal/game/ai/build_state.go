package ai

import (
	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
)

// BuildWorldState snapshots what u can see within radius for planning.
//
// Precondition: m and u must not be nil.
// Postcondition: ws.NPC.GUID == u.GUID(); u itself and neutral units are absent.
func BuildWorldState(m *world.Map, u *unit.Unit, radius float32) *WorldState {
	ws := &WorldState{
		NPC: &NPCState{
			GUID:      u.GUID(),
			Name:      u.Name(),
			Health:    u.Health(),
			MaxHealth: u.MaxHealth(),
			Power:     u.Power(u.PowerType()),
			MaxPower:  u.MaxPower(u.PowerType()),
		},
	}
	if ctl, ok := cast.ControllerOf(u); ok {
		ws.NPC.Casting = ctl.IsCasting()
	}
	for _, o := range m.UnitsInRange(u.Position(), radius) {
		if o == u {
			continue
		}
		hostile := u.IsHostileTo(o)
		if !hostile && !u.IsFriendlyTo(o) {
			continue
		}
		ws.Combatants = append(ws.Combatants, &CombatantState{
			GUID:      o.GUID(),
			Name:      o.Name(),
			Hostile:   hostile,
			Health:    o.Health(),
			MaxHealth: o.MaxHealth(),
			Dead:      !o.IsAlive(),
			Distance:  u.Distance(o),
		})
	}
	return ws
}
