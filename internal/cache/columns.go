package cache

import (
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

// InsertColumn places a new column at index (clamped) and renumbers the board.
// Used for optimistic creates; the column usually carries a temporary ID.
func (c *Cache) InsertColumn(col *domain.Column, index int) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.board == nil || col.BoardID != c.board.ID {
		return Inverse{}, false
	}
	if i, _ := c.findColumn(col.ID); i >= 0 || c.tombstonedLocked(col.ID) {
		return Inverse{}, false
	}

	cp := col.Clone()
	c.board.Columns = position.Insert(c.board.Columns, index, cp)
	renumberColumns(c.board.Columns)
	return c.inverse(Inverse{kind: removeColumn, id: cp.ID}), true
}

// UpsertColumn inserts the column sorted by position, or merges title and
// position into the existing column with the same ID.
func (c *Cache) UpsertColumn(col *domain.Column) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.board == nil || col.BoardID != c.board.ID || c.tombstonedLocked(col.ID) {
		return false
	}

	if i, existing := c.findColumn(col.ID); existing != nil {
		changed := false
		if existing.Title != col.Title {
			existing.Title = col.Title
			changed = true
		}
		if col.Position != i {
			c.board.Columns = position.Move(c.board.Columns, i, col.Position)
			changed = renumberColumns(c.board.Columns) || changed
		}
		return changed
	}

	cp := col.Clone()
	for _, card := range cp.Cards {
		card.ColumnID = cp.ID
		card.BoardID = cp.BoardID
	}
	at := position.InsertIndex(c.board.Columns, cp.Position, func(x *domain.Column) int { return x.Position })
	c.board.Columns = position.Insert(c.board.Columns, at, cp)
	renumberColumns(c.board.Columns)
	return true
}

// UpdateColumn merges a partial column update. A position moves the column.
func (c *Cache) UpdateColumn(id domain.ID, p domain.ColumnPatch) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, col := c.findColumn(id)
	if col == nil {
		return Inverse{}, false
	}

	before := &domain.Column{ID: col.ID, BoardID: col.BoardID, Title: col.Title, Position: i}
	changed := false
	if p.Title != nil && *p.Title != col.Title {
		col.Title = *p.Title
		changed = true
	}
	if p.Position != nil && *p.Position != i {
		c.board.Columns = position.Move(c.board.Columns, i, *p.Position)
		renumberColumns(c.board.Columns)
		changed = true
	}
	if !changed {
		return Inverse{}, false
	}
	return c.inverse(Inverse{kind: restoreColumn, id: id, column: before, columnPatch: p}), true
}

// RemoveColumn drops the column and every card in it.
func (c *Cache) RemoveColumn(id domain.ID) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, col := c.findColumn(id)
	if col == nil {
		return Inverse{}, false
	}
	c.board.Columns = position.Remove(c.board.Columns, i)
	renumberColumns(c.board.Columns)
	return c.inverse(Inverse{kind: reinsertColumn, id: id, column: col, index: i}), true
}

// ReplaceColumnID swaps a temporary column for its confirmed counterpart in
// place, keeping its index and cards.
func (c *Cache) ReplaceColumnID(tempID domain.ID, confirmed *domain.Column) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, col := c.findColumn(tempID)
	if col == nil {
		return false
	}
	if c.tombstonedLocked(confirmed.ID) {
		c.board.Columns = position.Remove(c.board.Columns, i)
		renumberColumns(c.board.Columns)
		return false
	}
	if j, dup := c.findColumn(confirmed.ID); dup != nil && j != i {
		// The echo already inserted the confirmed row; keep that one.
		for _, card := range col.Cards {
			card.ColumnID = dup.ID
		}
		dup.Cards = append(dup.Cards, col.Cards...)
		renumberCards(dup.Cards)
		c.board.Columns = position.Remove(c.board.Columns, i)
		renumberColumns(c.board.Columns)
		return true
	}

	col.ID = confirmed.ID
	col.Title = confirmed.Title
	for _, card := range col.Cards {
		card.ColumnID = confirmed.ID
	}
	return true
}
