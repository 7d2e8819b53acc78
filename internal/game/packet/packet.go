// Package packet encodes the spell and aura payloads broadcast to observers.
package packet

import (
	"fmt"

	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/wire"
)

// Opcode identifies a payload kind on the observer stream.
type Opcode uint16

const (
	OpSpellStart   Opcode = 0x131
	OpSpellGo      Opcode = 0x132
	OpSpellFailure Opcode = 0x133
	OpAuraUpdate   Opcode = 0x496
)

func (o Opcode) String() string {
	switch o {
	case OpSpellStart:
		return "SMSG_SPELL_START"
	case OpSpellGo:
		return "SMSG_SPELL_GO"
	case OpSpellFailure:
		return "SMSG_SPELL_FAILURE"
	case OpAuraUpdate:
		return "SMSG_AURA_UPDATE"
	default:
		return fmt.Sprintf("opcode(0x%x)", uint16(o))
	}
}

// SpellStart announces that a unit began casting.
type SpellStart struct {
	Caster     uint64
	SpellID    uint32
	CastFlags  uint32
	CastTimeMs uint32
	Targets    targetmap.SpellTargetMap
}

// Marshal encodes the payload.
func (p SpellStart) Marshal() []byte {
	w := wire.NewWriter(48)
	w.PackedGUID(p.Caster)
	w.Uint32(p.SpellID)
	w.Uint32(p.CastFlags)
	w.Uint32(p.CastTimeMs)
	p.Targets.Encode(w)
	return w.Bytes()
}

// UnmarshalSpellStart decodes a SpellStart payload.
func UnmarshalSpellStart(b []byte) (SpellStart, error) {
	r := wire.NewReader(b)
	p := SpellStart{
		Caster:     r.PackedGUID(),
		SpellID:    r.Uint32(),
		CastFlags:  r.Uint32(),
		CastTimeMs: r.Uint32(),
	}
	tm, err := targetmap.Decode(r)
	if err != nil {
		return SpellStart{}, fmt.Errorf("decoding spell start: %w", err)
	}
	p.Targets = tm
	return p, nil
}

// SpellGo announces that a cast completed and lists the units it hit.
type SpellGo struct {
	Caster    uint64
	SpellID   uint32
	CastFlags uint32
	Hits      []uint64
	Targets   targetmap.SpellTargetMap
}

// Marshal encodes the payload. At most 255 hits are written.
func (p SpellGo) Marshal() []byte {
	w := wire.NewWriter(64)
	w.PackedGUID(p.Caster)
	w.Uint32(p.SpellID)
	w.Uint32(p.CastFlags)
	hits := p.Hits
	if len(hits) > 255 {
		hits = hits[:255]
	}
	w.Uint8(uint8(len(hits)))
	for _, h := range hits {
		w.Uint64(h)
	}
	p.Targets.Encode(w)
	return w.Bytes()
}

// UnmarshalSpellGo decodes a SpellGo payload.
func UnmarshalSpellGo(b []byte) (SpellGo, error) {
	r := wire.NewReader(b)
	p := SpellGo{
		Caster:    r.PackedGUID(),
		SpellID:   r.Uint32(),
		CastFlags: r.Uint32(),
	}
	n := int(r.Uint8())
	for i := 0; i < n && r.Err() == nil; i++ {
		p.Hits = append(p.Hits, r.Uint64())
	}
	tm, err := targetmap.Decode(r)
	if err != nil {
		return SpellGo{}, fmt.Errorf("decoding spell go: %w", err)
	}
	p.Targets = tm
	return p, nil
}

// SpellFailure announces that a cast ended without success.
type SpellFailure struct {
	Caster  uint64
	SpellID uint32
	Result  uint8
}

// Marshal encodes the payload.
func (p SpellFailure) Marshal() []byte {
	w := wire.NewWriter(16)
	w.PackedGUID(p.Caster)
	w.Uint32(p.SpellID)
	w.Uint8(p.Result)
	return w.Bytes()
}

// UnmarshalSpellFailure decodes a SpellFailure payload.
func UnmarshalSpellFailure(b []byte) (SpellFailure, error) {
	r := wire.NewReader(b)
	p := SpellFailure{Caster: r.PackedGUID(), SpellID: r.Uint32(), Result: r.Uint8()}
	if err := r.Err(); err != nil {
		return SpellFailure{}, fmt.Errorf("decoding spell failure: %w", err)
	}
	return p, nil
}
