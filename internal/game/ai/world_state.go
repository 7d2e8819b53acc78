package ai

// Target tokens accepted by operators.
const (
	TargetSelf         = "self"
	TargetNearestEnemy = "nearest_enemy"
	TargetWeakestEnemy = "weakest_enemy"
	TargetWeakestAlly  = "weakest_ally"
)

// CombatantState captures another unit's state at planning time.
type CombatantState struct {
	GUID      uint64
	Name      string
	Hostile   bool
	Health    int
	MaxHealth int
	Dead      bool
	Distance  float32
}

// HealthPercent returns current health as a percentage of MaxHealth; 0 if MaxHealth == 0.
func (c *CombatantState) HealthPercent() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return float64(c.Health) / float64(c.MaxHealth) * 100
}

// NPCState captures the planning unit's own state.
type NPCState struct {
	GUID      uint64
	Name      string
	Health    int
	MaxHealth int
	Power     int
	MaxPower  int
	Casting   bool
}

// HealthPercent returns current health as a percentage of MaxHealth; 0 if MaxHealth == 0.
func (n *NPCState) HealthPercent() float64 {
	if n.MaxHealth <= 0 {
		return 0
	}
	return float64(n.Health) / float64(n.MaxHealth) * 100
}

// WorldState is the snapshot passed to the HTN planner for one unit.
// Combatants holds the other units in awareness range that are hostile or
// friendly; neutral units are left out.
//
// Invariant: NPC must not be nil.
type WorldState struct {
	NPC        *NPCState
	Combatants []*CombatantState
}

// Enemies returns all living hostile combatants.
//
// Postcondition: returned slice contains no dead or friendly combatants.
func (ws *WorldState) Enemies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && c.Hostile {
			out = append(out, c)
		}
	}
	return out
}

// HasLivingEnemies returns true when at least one living enemy exists.
//
// Postcondition: equivalent to len(Enemies()) > 0.
func (ws *WorldState) HasLivingEnemies() bool {
	return len(ws.Enemies()) > 0
}

// NearestEnemy returns the closest living enemy, or nil.
//
// Postcondition: ties broken by order in Combatants.
func (ws *WorldState) NearestEnemy() *CombatantState {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	nearest := enemies[0]
	for _, e := range enemies[1:] {
		if e.Distance < nearest.Distance {
			nearest = e
		}
	}
	return nearest
}

// WeakestEnemy returns the living enemy with the lowest health percentage, or nil.
//
// Postcondition: nil if no living enemies exist; ties broken by order in Combatants.
func (ws *WorldState) WeakestEnemy() *CombatantState {
	enemies := ws.Enemies()
	if len(enemies) == 0 {
		return nil
	}
	weakest := enemies[0]
	for _, e := range enemies[1:] {
		if e.HealthPercent() < weakest.HealthPercent() {
			weakest = e
		}
	}
	return weakest
}

// Allies returns all living friendly combatants, excluding the planning unit.
func (ws *WorldState) Allies() []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && !c.Hostile {
			out = append(out, c)
		}
	}
	return out
}

// ResolveTarget maps a target token to a unit GUID.
//
// Precondition: ws.NPC must not be nil.
// Postcondition: returns 0 when the token names nobody. "weakest_ally" picks
// the most wounded of the planning unit and its allies, and 0 when all are unhurt.
func (ws *WorldState) ResolveTarget(token string) uint64 {
	switch token {
	case TargetNearestEnemy:
		if e := ws.NearestEnemy(); e != nil {
			return e.GUID
		}
	case TargetWeakestEnemy:
		if e := ws.WeakestEnemy(); e != nil {
			return e.GUID
		}
	case TargetWeakestAlly:
		best, pct := uint64(0), 100.0
		if p := ws.NPC.HealthPercent(); p < pct {
			best, pct = ws.NPC.GUID, p
		}
		for _, a := range ws.Allies() {
			if p := a.HealthPercent(); p < pct {
				best, pct = a.GUID, p
			}
		}
		return best
	case TargetSelf:
		return ws.NPC.GUID
	}
	return 0
}
