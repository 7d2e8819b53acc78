// Package targetmap defines the value type describing what a cast is aimed at
// and its fixed byte layout.
package targetmap

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/spellcore/internal/wire"
)

// ErrMalformed is returned when a payload cannot be decoded as a target map.
var ErrMalformed = errors.New("targetmap: malformed payload")

// Flags is the 32-bit target mask. Each bit gates one optional field.
type Flags uint32

const (
	Self           Flags = 0x00000
	Unit           Flags = 0x00002
	UnitRaid       Flags = 0x00004
	UnitParty      Flags = 0x00008
	Item           Flags = 0x00010
	SourceLocation Flags = 0x00020
	DestLocation   Flags = 0x00040
	UnitEnemy      Flags = 0x00080
	UnitAlly       Flags = 0x00100
	CorpseEnemy    Flags = 0x00200
	UnitDead       Flags = 0x00400
	GameObject     Flags = 0x00800
	TradeItem      Flags = 0x01000
	String         Flags = 0x02000
	GameObjectItem Flags = 0x04000
	CorpseAlly     Flags = 0x08000
	UnitMinipet    Flags = 0x10000
)

const (
	UnitMask       = Unit | UnitRaid | UnitParty | UnitEnemy | UnitAlly | UnitDead | UnitMinipet
	GameObjectMask = GameObject | GameObjectItem
	ObjectMask     = UnitMask | GameObjectMask
	ItemMask       = Item | TradeItem
	CorpseMask     = CorpseEnemy | CorpseAlly
	// KnownMask covers every bit the codec understands.
	KnownMask = ObjectMask | ItemMask | SourceLocation | DestLocation | String | CorpseMask
)

// Location is a world position.
type Location struct {
	X, Y, Z float32
}

// SpellTargetMap is a mask plus the fields the mask makes present.
// Fields whose gating bit is clear are ignored by Encode.
type SpellTargetMap struct {
	Mask       Flags
	ObjectGUID uint64
	ItemGUID   uint64
	Source     Location
	Dest       Location
	Str        string
	CorpseGUID uint64
}

// Has reports whether any bit of f is set.
func (m SpellTargetMap) Has(f Flags) bool {
	return m.Mask&f != 0
}

// UnitTarget returns the unit target GUID, or 0 when the mask names no unit.
func (m SpellTargetMap) UnitTarget() uint64 {
	if !m.Has(UnitMask) {
		return 0
	}
	return m.ObjectGUID
}

// SetUnitTarget aims the map at guid.
func (m *SpellTargetMap) SetUnitTarget(guid uint64) {
	m.Mask |= Unit
	m.ObjectGUID = guid
}

// SetItemTarget aims the map at an item.
func (m *SpellTargetMap) SetItemTarget(guid uint64) {
	m.Mask |= Item
	m.ItemGUID = guid
}

// SetSource records the source location.
func (m *SpellTargetMap) SetSource(loc Location) {
	m.Mask |= SourceLocation
	m.Source = loc
}

// SetDest records the destination location.
func (m *SpellTargetMap) SetDest(loc Location) {
	m.Mask |= DestLocation
	m.Dest = loc
}

// SetString records the string target.
func (m *SpellTargetMap) SetString(s string) {
	m.Mask |= String
	m.Str = s
}

// SetCorpseTarget aims the map at an enemy corpse.
func (m *SpellTargetMap) SetCorpseTarget(guid uint64) {
	m.Mask |= CorpseEnemy
	m.CorpseGUID = guid
}

// Normalized returns a copy with every ungated field zeroed, which is the
// form Decode produces.
func (m SpellTargetMap) Normalized() SpellTargetMap {
	out := SpellTargetMap{Mask: m.Mask}
	if m.Has(ObjectMask) {
		out.ObjectGUID = m.ObjectGUID
	}
	if m.Has(ItemMask) {
		out.ItemGUID = m.ItemGUID
	}
	if m.Has(SourceLocation) {
		out.Source = m.Source
	}
	if m.Has(DestLocation) {
		out.Dest = m.Dest
	}
	if m.Has(String) {
		out.Str = m.Str
	}
	if m.Has(CorpseMask) {
		out.CorpseGUID = m.CorpseGUID
	}
	return out
}

// Encode writes the mask followed by its gated fields in fixed order.
func (m SpellTargetMap) Encode(w *wire.Writer) {
	w.Uint32(uint32(m.Mask))
	if m.Has(ObjectMask) {
		w.PackedGUID(m.ObjectGUID)
	}
	if m.Has(ItemMask) {
		w.PackedGUID(m.ItemGUID)
	}
	if m.Has(SourceLocation) {
		writeLocation(w, m.Source)
	}
	if m.Has(DestLocation) {
		writeLocation(w, m.Dest)
	}
	if m.Has(String) {
		w.CString(m.Str)
	}
	if m.Has(CorpseMask) {
		w.PackedGUID(m.CorpseGUID)
	}
}

// Marshal returns the encoded form of m.
func (m SpellTargetMap) Marshal() []byte {
	w := wire.NewWriter(32)
	m.Encode(w)
	return w.Bytes()
}

// Decode reads one target map from r.
//
// Postcondition: on success the result equals its own Normalized form.
func Decode(r *wire.Reader) (SpellTargetMap, error) {
	var m SpellTargetMap
	m.Mask = Flags(r.Uint32())
	if m.Has(ObjectMask) {
		m.ObjectGUID = r.PackedGUID()
	}
	if m.Has(ItemMask) {
		m.ItemGUID = r.PackedGUID()
	}
	if m.Has(SourceLocation) {
		m.Source = readLocation(r)
	}
	if m.Has(DestLocation) {
		m.Dest = readLocation(r)
	}
	if m.Has(String) {
		m.Str = r.CString()
	}
	if m.Has(CorpseMask) {
		m.CorpseGUID = r.PackedGUID()
	}
	if err := r.Err(); err != nil {
		return SpellTargetMap{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}

// Unmarshal decodes a complete payload. Trailing bytes are an error.
func Unmarshal(b []byte) (SpellTargetMap, error) {
	r := wire.NewReader(b)
	m, err := Decode(r)
	if err != nil {
		return SpellTargetMap{}, err
	}
	if n := r.Remaining(); n != 0 {
		return SpellTargetMap{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, n)
	}
	return m, nil
}

func writeLocation(w *wire.Writer, l Location) {
	w.Float32(l.X)
	w.Float32(l.Y)
	w.Float32(l.Z)
}

func readLocation(r *wire.Reader) Location {
	return Location{X: r.Float32(), Y: r.Float32(), Z: r.Float32()}
}
