package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// CooldownRepository persists unexpired spell and category cooldowns per unit.
// ExpiresAt values are stored as unix milliseconds; callers convert from
// their scheduler clock.
type CooldownRepository struct {
	db *pgxpool.Pool
}

// NewCooldownRepository creates a CooldownRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCooldownRepository(db *pgxpool.Pool) *CooldownRepository {
	return &CooldownRepository{db: db}
}

// Save replaces every stored cooldown of unitGUID with entries in one transaction.
//
// Precondition: each entry has exactly one of SpellID and Category non-zero.
// Postcondition: Load(unitGUID) returns exactly entries, or a non-nil error is
// returned and the stored rows are unchanged.
func (r *CooldownRepository) Save(ctx context.Context, unitGUID uint64, entries []unit.CooldownEntry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning cooldown save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM unit_spell_cooldowns WHERE unit_guid = $1`, int64(unitGUID)); err != nil {
		return fmt.Errorf("clearing cooldowns for unit %d: %w", unitGUID, err)
	}

	if len(entries) > 0 {
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			if (e.SpellID == 0) == (e.Category == 0) {
				return fmt.Errorf("cooldown for unit %d must name exactly one of spell or category: %+v", unitGUID, e)
			}
			rows = append(rows, []any{int64(unitGUID), int64(e.SpellID), int64(e.Category), e.ExpiresAt})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"unit_spell_cooldowns"},
			[]string{"unit_guid", "spell_id", "category", "expires_at_ms"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("writing cooldowns for unit %d: %w", unitGUID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing cooldowns for unit %d: %w", unitGUID, err)
	}
	return nil
}

// Load returns the stored cooldowns of unitGUID that have not yet expired by
// the database clock, ordered by spell then category. A unit with no rows
// yields an empty slice and no error.
func (r *CooldownRepository) Load(ctx context.Context, unitGUID uint64) ([]unit.CooldownEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT spell_id, category, expires_at_ms
		 FROM unit_spell_cooldowns
		 WHERE unit_guid = $1
		   AND expires_at_ms > (EXTRACT(EPOCH FROM clock_timestamp()) * 1000)::BIGINT
		 ORDER BY spell_id, category`,
		int64(unitGUID),
	)
	if err != nil {
		return nil, fmt.Errorf("querying cooldowns for unit %d: %w", unitGUID, err)
	}
	defer rows.Close()

	var out []unit.CooldownEntry
	for rows.Next() {
		var spellID, category, expires int64
		if err := rows.Scan(&spellID, &category, &expires); err != nil {
			return nil, fmt.Errorf("scanning cooldown row: %w", err)
		}
		out = append(out, unit.CooldownEntry{SpellID: uint32(spellID), Category: uint32(category), ExpiresAt: expires})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cooldowns for unit %d: %w", unitGUID, err)
	}
	return out, nil
}

// PurgeExpired deletes every row that expired at or before nowUnixMs.
//
// Postcondition: Returns the number of rows removed.
func (r *CooldownRepository) PurgeExpired(ctx context.Context, nowUnixMs int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM unit_spell_cooldowns WHERE expires_at_ms <= $1`, nowUnixMs)
	if err != nil {
		return 0, fmt.Errorf("purging expired cooldowns: %w", err)
	}
	return tag.RowsAffected(), nil
}
