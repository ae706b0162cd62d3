// Package position holds the ordering helpers shared by the board cache and
// the remote store: dense renumbering, sorted insertion and in-slice moves.
package position

// Renumber assigns positions 0..n-1 in slice order and reports whether any
// position changed.
func Renumber[T any](items []T, get func(T) int, set func(T, int)) bool {
	changed := false
	for i, it := range items {
		if get(it) != i {
			set(it, i)
			changed = true
		}
	}
	return changed
}

// Clamp bounds index into [0, n].
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// InsertIndex returns where an item with position pos goes in a list sorted by
// position. Ties land after existing items with the same position.
func InsertIndex[T any](items []T, pos int, get func(T) int) int {
	for i, it := range items {
		if get(it) > pos {
			return i
		}
	}
	return len(items)
}

// Insert places v at index, clamped to the list bounds.
func Insert[T any](items []T, index int, v T) []T {
	index = Clamp(index, len(items))
	items = append(items, v)
	copy(items[index+1:], items[index:])
	items[index] = v
	return items
}

// Remove deletes the element at index and returns the shortened list.
func Remove[T any](items []T, index int) []T {
	if index < 0 || index >= len(items) {
		return items
	}
	copy(items[index:], items[index+1:])
	var zero T
	items[len(items)-1] = zero
	return items[:len(items)-1]
}

// Move relocates the element at from to index to (clamped) within one list.
func Move[T any](items []T, from, to int) []T {
	if from < 0 || from >= len(items) {
		return items
	}
	v := items[from]
	items = Remove(items, from)
	return Insert(items, to, v)
}

// IndexOf returns the index of the first element matching pred, or -1.
func IndexOf[T any](items []T, pred func(T) bool) int {
	for i, it := range items {
		if pred(it) {
			return i
		}
	}
	return -1
}

// Next returns the position for an item appended after max. ok=false means the
// list is empty and the first position is 0.
func Next(max int, ok bool) int {
	if !ok {
		return 0
	}
	return max + 1
}
