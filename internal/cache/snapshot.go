package cache

import (
	"slices"

	"github.com/gosuda/boardsync/internal/domain"
)

// Snapshot is a deep copy of the board tree and the summary list: columns and
// their card lists are copied, card fields shallowly, sub-collections by
// reference.
type Snapshot struct {
	board      *domain.Board
	boards     []domain.Board
	generation uint64
}

// Snapshot captures the current state as a whole-tree rollback point.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{generation: c.generation, boards: slices.Clone(c.boards)}
	if c.board != nil {
		s.board = c.board.Clone()
	}
	return s
}

// Board returns a copy of the captured tree.
func (s Snapshot) Board() *domain.Board {
	if s.board == nil {
		return nil
	}
	return s.board.Clone()
}

// Restore swaps the snapshot back in. A snapshot taken before the last
// ReplaceBoard is ignored. Entities tombstoned since the capture stay deleted.
func (c *Cache) Restore(s Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.generation != c.generation {
		return false
	}
	c.boards = slices.DeleteFunc(slices.Clone(s.boards), func(b domain.Board) bool {
		return c.tombstonedLocked(b.ID)
	})
	if s.board == nil || c.tombstonedLocked(s.board.ID) {
		c.board = nil
		return true
	}
	c.board = s.board.Clone()
	c.pruneTombstonedLocked()
	return true
}

// pruneTombstonedLocked drops tombstoned columns and cards from the tree and
// renumbers what is left.
func (c *Cache) pruneTombstonedLocked() {
	c.board.Columns = slices.DeleteFunc(c.board.Columns, func(col *domain.Column) bool {
		return c.tombstonedLocked(col.ID)
	})
	renumberColumns(c.board.Columns)
	for _, col := range c.board.Columns {
		col.Cards = slices.DeleteFunc(col.Cards, func(card *domain.Card) bool {
			return c.tombstonedLocked(card.ID)
		})
		renumberCards(col.Cards)
	}
}
