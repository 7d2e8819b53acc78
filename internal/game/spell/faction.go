package spell

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Faction is one faction template row.
type Faction struct {
	ID      uint32   `yaml:"id"`
	Name    string   `yaml:"name"`
	Enemies []uint32 `yaml:"enemies"`
	Friends []uint32 `yaml:"friends"`
}

// FactionTable answers hostility questions between faction templates.
type FactionTable struct {
	factions map[uint32]*Faction
}

// NewFactionTable builds a table from rows.
func NewFactionTable(rows ...*Faction) *FactionTable {
	t := &FactionTable{factions: make(map[uint32]*Faction, len(rows))}
	for _, f := range rows {
		t.factions[f.ID] = f
	}
	return t
}

// Get returns the faction row for id.
func (t *FactionTable) Get(id uint32) (*Faction, bool) {
	f, ok := t.factions[id]
	return f, ok
}

// IsHostile reports whether a treats b as an enemy. Hostility is symmetric:
// either side listing the other as an enemy is enough. An explicit friend
// entry overrides an enemy entry. Unknown factions are neutral.
func (t *FactionTable) IsHostile(a, b uint32) bool {
	if a == b {
		return false
	}
	fa, okA := t.factions[a]
	fb, okB := t.factions[b]
	if okA && contains(fa.Friends, b) || okB && contains(fb.Friends, a) {
		return false
	}
	return okA && contains(fa.Enemies, b) || okB && contains(fb.Enemies, a)
}

// IsFriendly reports whether a and b are the same faction or explicit friends.
func (t *FactionTable) IsFriendly(a, b uint32) bool {
	if a == b {
		return true
	}
	fa, okA := t.factions[a]
	fb, okB := t.factions[b]
	return okA && contains(fa.Friends, b) || okB && contains(fb.Friends, a)
}

func contains(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// LoadFactions reads a YAML file with a top-level "factions" list.
//
// Precondition: path must be a readable file.
// Postcondition: Returns a populated FactionTable or a non-nil error.
func LoadFactions(path string) (*FactionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading faction file %q: %w", path, err)
	}
	var file struct {
		Factions []*Faction `yaml:"factions"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return NewFactionTable(file.Factions...), nil
}
