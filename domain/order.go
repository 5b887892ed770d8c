package domain

import "sort"

// Positions are dense zero-based integers. Inserting at index i shifts every
// occupant at position >= i up by one; removals renumber the remainder so
// values stay small. The O(n) shift is deliberate: stable integer positions
// are easier to reason about than fractional keys, and containers are short.

// ShiftSet describes the siblings displaced by an insert: every item whose
// position is >= From moves by Delta.
type ShiftSet struct {
	From  int
	Delta int
}

// Contains reports whether an item at pos is displaced by the shift.
func (s ShiftSet) Contains(pos int) bool {
	return s.Delta != 0 && pos >= s.From
}

// ClampIndex clamps a requested destination index to [0, size]. Index == size
// appends.
func ClampIndex(size, index int) int {
	if index < 0 {
		return 0
	}
	if index > size {
		return size
	}
	return index
}

// PlanInsert computes the position an item receives when entering a container
// of containerSize items at destinationIndex, plus the shift applied to the
// existing occupants. Pure; never fails.
func PlanInsert(containerSize, destinationIndex int) (int, ShiftSet) {
	pos := ClampIndex(containerSize, destinationIndex)
	if pos == containerSize {
		// Append: nothing occupies a position >= pos.
		return pos, ShiftSet{}
	}
	return pos, ShiftSet{From: pos, Delta: 1}
}

// ItemPosition is one committed position assignment.
type ItemPosition struct {
	ItemID   string `json:"id"`
	Position int    `json:"position"`
}

// SortItems orders items by position, breaking position ties by ID so
// iteration order is deterministic even when a backend tolerates duplicates.
func SortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position == items[j].Position {
			return items[i].ID < items[j].ID
		}
		return items[i].Position < items[j].Position
	})
}

// Renumber assigns dense positions 0..n-1 to the given items, preserving
// their current relative order, and returns only the assignments that
// changed.
func Renumber(items []Item) []ItemPosition {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	SortItems(ordered)
	var changed []ItemPosition
	for i, it := range ordered {
		if it.Position != i {
			changed = append(changed, ItemPosition{ItemID: it.ID, Position: i})
		}
	}
	return changed
}
