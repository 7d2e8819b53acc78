package unit

import (
	"slices"

	"go.uber.org/zap"
)

// Item is one stack in a unit's inventory.
type Item struct {
	GUID  uint64
	Entry uint32
	Count int
}

// AddItem places it in the inventory, replacing any stack with the same GUID.
//
// Precondition: it.GUID must be non-zero and it.Count positive.
func (u *Unit) AddItem(it Item) {
	cp := it
	u.items[it.GUID] = &cp
}

// Item returns the stack with guid.
func (u *Unit) Item(guid uint64) (Item, bool) {
	it, ok := u.items[guid]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// ItemCount returns how many items of entry the unit carries across all stacks.
func (u *Unit) ItemCount(entry uint32) int {
	n := 0
	for _, it := range u.items {
		if it.Entry == entry {
			n += it.Count
		}
	}
	return n
}

// ConsumeItems removes count items of entry, draining stacks in GUID order.
//
// Postcondition: Returns false and changes nothing when fewer than count are carried.
func (u *Unit) ConsumeItems(entry uint32, count int) bool {
	if count <= 0 {
		return true
	}
	if u.ItemCount(entry) < count {
		return false
	}
	for _, guid := range u.itemGUIDs() {
		it := u.items[guid]
		if it.Entry != entry {
			continue
		}
		take := min(it.Count, count)
		it.Count -= take
		count -= take
		if it.Count == 0 {
			u.dropItem(guid)
		}
		if count == 0 {
			break
		}
	}
	return true
}

// ConsumeItem removes one item from the stack with guid.
// An emptied stack is dropped and every aura it granted is removed.
func (u *Unit) ConsumeItem(guid uint64) bool {
	it, ok := u.items[guid]
	if !ok {
		return false
	}
	it.Count--
	if it.Count <= 0 {
		u.dropItem(guid)
	}
	return true
}

// RemoveItem drops the whole stack with guid.
func (u *Unit) RemoveItem(guid uint64) bool {
	if _, ok := u.items[guid]; !ok {
		return false
	}
	u.dropItem(guid)
	return true
}

func (u *Unit) dropItem(guid uint64) {
	delete(u.items, guid)
	u.logger.Debug("item removed", zap.Uint64("item", guid))
	u.RemoveAllAurasDueToItem(guid)
}

func (u *Unit) itemGUIDs() []uint64 {
	out := make([]uint64, 0, len(u.items))
	for guid := range u.items {
		out = append(out, guid)
	}
	slices.Sort(out)
	return out
}
