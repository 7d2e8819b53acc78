package world

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// Spawn places one unit of a template at a position.
type Spawn struct {
	GUID     uint64        `yaml:"guid"`
	Template uint32        `yaml:"template"`
	Position unit.Position `yaml:"position"`
	// Items carried at spawn, keyed by item entry.
	Items map[uint32]int `yaml:"items"`
}

// SpawnFile is the on-disk layout of a map's population.
type SpawnFile struct {
	Templates    []unit.Template `yaml:"templates"`
	Spawns       []Spawn         `yaml:"spawns"`
	IndoorAreas  []Box           `yaml:"indoor_areas"`
	FocusObjects []FocusObject   `yaml:"focus_objects"`
}

// LoadSpawns reads and validates a spawn file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated SpawnFile or a non-nil error.
func LoadSpawns(path string) (*SpawnFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spawn file %s: %w", path, err)
	}
	return LoadSpawnsFromBytes(data)
}

// LoadSpawnsFromBytes parses and validates a spawn file. Unknown keys are rejected.
func LoadSpawnsFromBytes(data []byte) (*SpawnFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f SpawnFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing spawn YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validating spawns: %w", err)
	}
	return &f, nil
}

// Validate checks template and GUID uniqueness and that every spawn names a known template.
//
// Postcondition: Returns nil, or one error joining every violation.
func (f *SpawnFile) Validate() error {
	var errs []error
	templates := make(map[uint32]bool, len(f.Templates))
	for _, t := range f.Templates {
		if t.Entry == 0 {
			errs = append(errs, fmt.Errorf("template %q: entry must be non-zero", t.Name))
			continue
		}
		if templates[t.Entry] {
			errs = append(errs, fmt.Errorf("duplicate template entry %d", t.Entry))
		}
		templates[t.Entry] = true
		if t.Health <= 0 {
			errs = append(errs, fmt.Errorf("template %d: health must be positive", t.Entry))
		}
	}
	guids := make(map[uint64]bool, len(f.Spawns))
	for _, s := range f.Spawns {
		if s.GUID == 0 || s.GUID >= summonGUIDBase {
			errs = append(errs, fmt.Errorf("spawn guid %d out of range", s.GUID))
		}
		if guids[s.GUID] {
			errs = append(errs, fmt.Errorf("duplicate spawn guid %d", s.GUID))
		}
		guids[s.GUID] = true
		if !templates[s.Template] {
			errs = append(errs, fmt.Errorf("spawn %d: unknown template %d", s.GUID, s.Template))
		}
	}
	return errors.Join(errs...)
}

// Populate registers the file's templates, indoor areas, and focus objects
// with m and adds one unit per spawn.
//
// Postcondition: Returns the spawned units in file order, or the first Add error.
func (f *SpawnFile) Populate(m *Map, logger *zap.Logger) ([]*unit.Unit, error) {
	for _, t := range f.Templates {
		m.RegisterTemplate(t)
	}
	for _, b := range f.IndoorAreas {
		m.AddIndoorArea(b)
	}
	for _, o := range f.FocusObjects {
		m.AddFocusObject(o)
	}
	out := make([]*unit.Unit, 0, len(f.Spawns))
	var itemGUID uint64
	for _, s := range f.Spawns {
		tmpl, _ := m.Template(s.Template)
		u := unit.New(s.GUID, tmpl, logger)
		u.Relocate(s.Position)
		for entry, count := range s.Items {
			itemGUID++
			u.AddItem(unit.Item{GUID: s.GUID<<16 | itemGUID, Entry: entry, Count: count})
		}
		if err := m.Add(u); err != nil {
			return out, err
		}
		out = append(out, u)
	}
	return out, nil
}
