package unit

import (
	"sort"

	"github.com/cory-johannsen/spellcore/internal/game/spell"
)

// CooldownEntry is one unexpired cooldown. Exactly one of SpellID and
// Category is non-zero. ExpiresAt is in the clock domain of the caller.
type CooldownEntry struct {
	SpellID   uint32
	Category  uint32
	ExpiresAt int64
}

// Cooldowns tracks per-spell and per-category cooldown expiry times.
// Expiry times only move forward; a shorter cooldown never replaces a longer one.
// It is not safe for concurrent use.
type Cooldowns struct {
	spells     map[uint32]int64
	categories map[uint32]int64
}

// NewCooldowns creates an empty cooldown table.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		spells:     make(map[uint32]int64),
		categories: make(map[uint32]int64),
	}
}

// IsReady reports whether neither e's spell id nor its category is on cooldown at now.
func (c *Cooldowns) IsReady(e *spell.Entry, now int64) bool {
	return c.Remaining(e, now) == 0
}

// Remaining returns the milliseconds until e may be cast again, or 0.
func (c *Cooldowns) Remaining(e *spell.Entry, now int64) int64 {
	var left int64
	if at, ok := c.spells[e.ID]; ok && at > now {
		left = at - now
	}
	if e.Category != 0 {
		if at, ok := c.categories[e.Category]; ok && at-now > left {
			left = at - now
		}
	}
	return left
}

// Start puts e on cooldown from now. A spell-specific cooldown takes priority;
// the category cooldown is only used when the spell declares none.
//
// Postcondition: IsReady(e, t) is false for now <= t < now+cooldown.
func (c *Cooldowns) Start(e *spell.Entry, now int64) {
	switch {
	case e.CooldownMs > 0:
		c.AddSpell(e.ID, now+e.CooldownMs)
	case e.Category != 0 && e.CategoryCooldownMs > 0:
		c.AddCategory(e.Category, now+e.CategoryCooldownMs)
	}
}

// AddSpell extends the cooldown of spellID to expiresAt.
func (c *Cooldowns) AddSpell(spellID uint32, expiresAt int64) {
	if expiresAt > c.spells[spellID] {
		c.spells[spellID] = expiresAt
	}
}

// AddCategory extends the cooldown of category to expiresAt.
func (c *Cooldowns) AddCategory(category uint32, expiresAt int64) {
	if expiresAt > c.categories[category] {
		c.categories[category] = expiresAt
	}
}

// Prune drops every entry that expired at or before now.
func (c *Cooldowns) Prune(now int64) {
	for id, at := range c.spells {
		if at <= now {
			delete(c.spells, id)
		}
	}
	for id, at := range c.categories {
		if at <= now {
			delete(c.categories, id)
		}
	}
}

// Snapshot returns the unexpired entries at now, ordered by spell then category.
func (c *Cooldowns) Snapshot(now int64) []CooldownEntry {
	var out []CooldownEntry
	for id, at := range c.spells {
		if at > now {
			out = append(out, CooldownEntry{SpellID: id, ExpiresAt: at})
		}
	}
	for id, at := range c.categories {
		if at > now {
			out = append(out, CooldownEntry{Category: id, ExpiresAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpellID != out[j].SpellID {
			return out[i].SpellID < out[j].SpellID
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Restore merges entries into the table.
func (c *Cooldowns) Restore(entries []CooldownEntry) {
	for _, e := range entries {
		if e.SpellID != 0 {
			c.AddSpell(e.SpellID, e.ExpiresAt)
		}
		if e.Category != 0 {
			c.AddCategory(e.Category, e.ExpiresAt)
		}
	}
}
