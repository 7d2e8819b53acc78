package spell_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/spellcore/internal/game/spell"
)

func TestFactionTable_Hostility(t *testing.T) {
	tbl := spell.NewFactionTable(
		&spell.Faction{ID: 1, Name: "Alliance", Enemies: []uint32{2, 3}},
		&spell.Faction{ID: 2, Name: "Horde", Enemies: []uint32{1}},
		&spell.Faction{ID: 3, Name: "Wildlife", Friends: []uint32{1}},
		&spell.Faction{ID: 4, Name: "Bandits", Enemies: []uint32{5}},
	)
	assert.True(t, tbl.IsHostile(1, 2))
	assert.True(t, tbl.IsHostile(2, 1))
	assert.False(t, tbl.IsHostile(1, 1))
	assert.False(t, tbl.IsHostile(1, 3), "friend entry overrides enemy entry")
	assert.True(t, tbl.IsHostile(5, 4), "hostility is symmetric")
	assert.False(t, tbl.IsHostile(5, 6), "unknown factions are neutral")
	assert.True(t, tbl.IsFriendly(3, 1))
	assert.False(t, tbl.IsFriendly(1, 2))
}

func TestLoadFactions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("factions:\n  - id: 1\n    name: A\n    enemies: [2]\n"), 0o644))
	tbl, err := spell.LoadFactions(path)
	require.NoError(t, err)
	f, ok := tbl.Get(1)
	require.True(t, ok)
	assert.Equal(t, "A", f.Name)
	assert.True(t, tbl.IsHostile(2, 1))
}
