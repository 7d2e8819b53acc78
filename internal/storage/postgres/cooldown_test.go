package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/storage/postgres"
	"github.com/cory-johannsen/spellcore/internal/testutil"
)

func TestCooldownRepository(t *testing.T) {
	repo := postgres.NewCooldownRepository(testutil.NewPool(t))
	ctx := context.Background()
	future := time.Now().Add(time.Hour).UnixMilli()
	past := time.Now().Add(-time.Hour).UnixMilli()

	t.Run("empty unit loads nothing", func(t *testing.T) {
		got, err := repo.Load(ctx, 999)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		entries := []unit.CooldownEntry{
			{Category: 4, ExpiresAt: future + 3000},
			{SpellID: 133, ExpiresAt: future + 8000},
		}
		require.NoError(t, repo.Save(ctx, 1, entries))

		got, err := repo.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	})

	t.Run("save replaces previous rows", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, 2, []unit.CooldownEntry{{SpellID: 1, ExpiresAt: future}, {SpellID: 2, ExpiresAt: future}}))
		require.NoError(t, repo.Save(ctx, 2, []unit.CooldownEntry{{SpellID: 3, ExpiresAt: future}}))

		got, err := repo.Load(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []unit.CooldownEntry{{SpellID: 3, ExpiresAt: future}}, got)

		require.NoError(t, repo.Save(ctx, 2, nil))
		got, err = repo.Load(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid entry leaves rows unchanged", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, 3, []unit.CooldownEntry{{SpellID: 7, ExpiresAt: future}}))
		err := repo.Save(ctx, 3, []unit.CooldownEntry{{SpellID: 8, Category: 1, ExpiresAt: future}})
		require.Error(t, err)

		got, err := repo.Load(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []unit.CooldownEntry{{SpellID: 7, ExpiresAt: future}}, got)
	})

	t.Run("expired rows are hidden and purged", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, 4, []unit.CooldownEntry{{SpellID: 1, ExpiresAt: past}, {SpellID: 2, ExpiresAt: future}}))

		got, err := repo.Load(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, []unit.CooldownEntry{{SpellID: 2, ExpiresAt: future}}, got)

		n, err := repo.PurgeExpired(ctx, time.Now().UnixMilli())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("restored cooldowns block the same spells", func(t *testing.T) {
		src := unit.NewCooldowns()
		src.AddSpell(42, future+9000)
		src.AddCategory(6, future+4000)
		now := time.Now().UnixMilli()
		require.NoError(t, repo.Save(ctx, 5, src.Snapshot(now)))

		loaded, err := repo.Load(ctx, 5)
		require.NoError(t, err)
		dst := unit.NewCooldowns()
		dst.Restore(loaded)
		assert.Equal(t, src.Snapshot(now), dst.Snapshot(now))
	})
}

func TestPropertyCooldownSaveLoad(t *testing.T) {
	repo := postgres.NewCooldownRepository(testutil.NewPool(t))
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UnixMilli()

	rapid.Check(t, func(rt *rapid.T) {
		guid := rapid.Uint64Range(1000, 1<<40).Draw(rt, "guid")
		cd := unit.NewCooldowns()
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		for i := 0; i < n; i++ {
			id := rapid.Uint32Range(1, 100).Draw(rt, "id")
			at := base + rapid.Int64Range(0, 1<<30).Draw(rt, "offset")
			if rapid.Bool().Draw(rt, "category") {
				cd.AddCategory(id, at)
			} else {
				cd.AddSpell(id, at)
			}
		}
		want := cd.Snapshot(0)
		if err := repo.Save(ctx, guid, want); err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := repo.Load(ctx, guid)
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		if len(want) == 0 {
			if len(got) != 0 {
				rt.Fatalf("expected no rows, got %v", got)
			}
			return
		}
		assert.Equal(rt, want, got)
	})
}
