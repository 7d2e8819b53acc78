package packet

import (
	"fmt"

	"github.com/cory-johannsen/spellcore/internal/wire"
)

// Aura slot flags.
const (
	AuraFlagNotCaster uint8 = 0x08
	AuraFlagPositive  uint8 = 0x10
	AuraFlagDuration  uint8 = 0x20
	AuraFlagNegative  uint8 = 0x80
)

// AuraSlot is the visible state of one aura slot. SpellID 0 clears the slot.
type AuraSlot struct {
	Slot        uint8
	SpellID     uint32
	Flags       uint8
	Level       uint8
	Stacks      uint8
	Caster      uint64
	MaxDuration int32
	Remaining   int32
}

// AuraUpdate carries one or more slot changes for one unit.
type AuraUpdate struct {
	Owner uint64
	Slots []AuraSlot
}

// Marshal encodes the payload. Cleared slots carry only slot and spell id.
func (p AuraUpdate) Marshal() []byte {
	w := wire.NewWriter(16 + 24*len(p.Slots))
	w.PackedGUID(p.Owner)
	for _, s := range p.Slots {
		w.Uint8(s.Slot)
		w.Uint32(s.SpellID)
		if s.SpellID == 0 {
			continue
		}
		w.Uint8(s.Flags)
		w.Uint8(s.Level)
		w.Uint8(s.Stacks)
		if s.Flags&AuraFlagNotCaster == 0 {
			w.PackedGUID(s.Caster)
		}
		if s.Flags&AuraFlagDuration != 0 {
			w.Int32(s.MaxDuration)
			w.Int32(s.Remaining)
		}
	}
	return w.Bytes()
}

// UnmarshalAuraUpdate decodes an AuraUpdate payload.
func UnmarshalAuraUpdate(b []byte) (AuraUpdate, error) {
	r := wire.NewReader(b)
	p := AuraUpdate{Owner: r.PackedGUID()}
	for r.Err() == nil && r.Remaining() > 0 {
		s := AuraSlot{Slot: r.Uint8(), SpellID: r.Uint32()}
		if s.SpellID != 0 {
			s.Flags = r.Uint8()
			s.Level = r.Uint8()
			s.Stacks = r.Uint8()
			if s.Flags&AuraFlagNotCaster == 0 {
				s.Caster = r.PackedGUID()
			}
			if s.Flags&AuraFlagDuration != 0 {
				s.MaxDuration = r.Int32()
				s.Remaining = r.Int32()
			}
		}
		p.Slots = append(p.Slots, s)
	}
	if err := r.Err(); err != nil {
		return AuraUpdate{}, fmt.Errorf("decoding aura update: %w", err)
	}
	return p, nil
}
