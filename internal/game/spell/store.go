package spell

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store holds every known spell and range entry keyed by ID.
// It is populated at load time and read-only afterwards.
type Store struct {
	spells map[uint32]*Entry
	ranges map[uint32]RangeEntry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		spells: make(map[uint32]*Entry),
		ranges: make(map[uint32]RangeEntry),
	}
}

// Register adds e to the store, overwriting any entry with the same ID.
//
// Precondition: e must not be nil and e.ID must not be 0.
func (s *Store) Register(e *Entry) {
	s.spells[e.ID] = e
}

// RegisterRange adds one range table row.
func (s *Store) RegisterRange(r RangeEntry) {
	s.ranges[r.ID] = r
}

// Get returns the Entry for id, or (nil, false) if not found.
func (s *Store) Get(id uint32) (*Entry, bool) {
	e, ok := s.spells[id]
	return e, ok
}

// Range returns the range row for id. Unknown ids mean unlimited range.
func (s *Store) Range(id uint32) (RangeEntry, bool) {
	r, ok := s.ranges[id]
	return r, ok
}

// Len returns the number of spell entries.
func (s *Store) Len() int {
	return len(s.spells)
}

// All returns a snapshot slice of all entries ordered by ID.
func (s *Store) All() []*Entry {
	out := make([]*Entry, 0, len(s.spells))
	for _, e := range s.spells {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks cross-entry invariants: effect counts, periodic amplitudes,
// and trigger/learn references.
//
// Postcondition: Returns nil, or one error joining every violation.
func (s *Store) Validate() error {
	var errs []error
	for _, e := range s.All() {
		if len(e.Effects) > MaxEffects {
			errs = append(errs, fmt.Errorf("spell %d: %d effects, max %d", e.ID, len(e.Effects), MaxEffects))
		}
		if e.RangeID != 0 {
			if _, ok := s.ranges[e.RangeID]; !ok {
				errs = append(errs, fmt.Errorf("spell %d: unknown range %d", e.ID, e.RangeID))
			}
		}
		for i, eff := range e.Effects {
			if eff.Type == EffectApplyAura && eff.Aura.IsPeriodic() && eff.AmplitudeMs <= 0 {
				errs = append(errs, fmt.Errorf("spell %d effect %d: periodic aura needs amplitude_ms > 0", e.ID, i))
			}
			switch eff.Type {
			case EffectTriggerSpell, EffectLearnSpell:
				if _, ok := s.spells[eff.TriggerSpell]; !ok {
					errs = append(errs, fmt.Errorf("spell %d effect %d: unknown trigger_spell %d", e.ID, i, eff.TriggerSpell))
				}
			}
			if eff.Type == EffectApplyAura && eff.Aura == AuraPeriodicTriggerSpell {
				if _, ok := s.spells[eff.TriggerSpell]; !ok {
					errs = append(errs, fmt.Errorf("spell %d effect %d: unknown trigger_spell %d", e.ID, i, eff.TriggerSpell))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// contentFile is the on-disk layout of one spell content file.
type contentFile struct {
	Ranges []RangeEntry `yaml:"ranges"`
	Spells []*Entry     `yaml:"spells"`
}

// LoadDirectory reads every *.yaml file in dir, registers the spells and range
// rows it declares, and validates the result.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Store, or an error if any file fails to parse
// or the combined content is inconsistent.
func LoadDirectory(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading spell dir %q: %w", dir, err)
	}
	store := NewStore()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var file contentFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, r := range file.Ranges {
			store.RegisterRange(r)
		}
		for _, sp := range file.Spells {
			if sp.ID == 0 {
				return nil, fmt.Errorf("parsing %q: spell %q has no id", path, sp.Name)
			}
			if _, dup := store.spells[sp.ID]; dup {
				return nil, fmt.Errorf("parsing %q: duplicate spell id %d", path, sp.ID)
			}
			store.Register(sp)
		}
	}
	if err := store.Validate(); err != nil {
		return nil, fmt.Errorf("validating spells in %q: %w", dir, err)
	}
	return store, nil
}
