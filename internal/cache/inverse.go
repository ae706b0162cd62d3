package cache

import (
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

type inverseKind int

const (
	noInverse inverseKind = iota
	removeCard
	reinsertCard
	restoreCard
	moveCardBack
	restoreLabels
	restoreAssignees
	removeColumn
	reinsertColumn
	restoreColumn
	restoreBoard
)

// Inverse undoes exactly one optimistic change. It only touches the entity the
// change touched, so concurrent edits of other entities survive a rollback.
// An inverse produced against an older generation of the tree is a no-op, as
// is one whose entity has since disappeared.
type Inverse struct {
	kind        inverseKind
	generation  uint64
	id          domain.ID
	columnID    domain.ID
	index       int
	card        *domain.Card
	cardPatch   domain.CardPatch
	column      *domain.Column
	columnPatch domain.ColumnPatch
	board       *domain.Board
	boardPatch  domain.BoardPatch
	labels      []domain.Label
	assignees   []domain.User
}

// IsZero reports whether the inverse has nothing to undo.
func (inv Inverse) IsZero() bool { return inv.kind == noInverse }

// Generation returns the tree generation the inverse belongs to.
func (inv Inverse) Generation() uint64 { return inv.generation }

func (c *Cache) inverse(inv Inverse) Inverse {
	inv.generation = c.generation
	return inv
}

// Apply runs an inverse and reports whether the tree changed.
func (c *Cache) Apply(inv Inverse) bool {
	if inv.IsZero() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if inv.generation != c.generation {
		return false
	}
	if c.board == nil && inv.kind != restoreBoard {
		return false
	}

	switch inv.kind {
	case removeCard:
		col, i := c.findCard(inv.id)
		if col == nil {
			return false
		}
		col.Cards = position.Remove(col.Cards, i)
		renumberCards(col.Cards)
		return true

	case reinsertCard:
		if existing, _ := c.findCard(inv.id); existing != nil || c.tombstonedLocked(inv.id) {
			return false
		}
		_, col := c.findColumn(inv.columnID)
		if col == nil {
			return false
		}
		inv.card.ColumnID = col.ID
		col.Cards = position.Insert(col.Cards, inv.index, inv.card)
		renumberCards(col.Cards)
		return true

	case restoreCard:
		col, i := c.findCard(inv.id)
		if col == nil {
			return false
		}
		col.Cards[i].Restore(inv.card, inv.cardPatch)
		return true

	case moveCardBack:
		current, _ := c.findCard(inv.id)
		_, to := c.findColumn(inv.columnID)
		if current == nil || to == nil {
			return false
		}
		return c.moveLocked(inv.id, current, to, inv.index)

	case restoreLabels:
		col, i := c.findCard(inv.id)
		if col == nil {
			return false
		}
		col.Cards[i].Labels = inv.labels
		return true

	case restoreAssignees:
		col, i := c.findCard(inv.id)
		if col == nil {
			return false
		}
		col.Cards[i].Assignees = inv.assignees
		return true

	case removeColumn:
		i, col := c.findColumn(inv.id)
		if col == nil {
			return false
		}
		c.board.Columns = position.Remove(c.board.Columns, i)
		renumberColumns(c.board.Columns)
		return true

	case reinsertColumn:
		if i, _ := c.findColumn(inv.id); i >= 0 || c.tombstonedLocked(inv.id) {
			return false
		}
		c.board.Columns = position.Insert(c.board.Columns, inv.index, inv.column)
		renumberColumns(c.board.Columns)
		return true

	case restoreColumn:
		i, col := c.findColumn(inv.id)
		if col == nil {
			return false
		}
		if inv.columnPatch.Title != nil {
			col.Title = inv.column.Title
		}
		if inv.columnPatch.Position != nil && i != inv.column.Position {
			c.board.Columns = position.Move(c.board.Columns, i, inv.column.Position)
			renumberColumns(c.board.Columns)
		}
		return true

	case restoreBoard:
		restored := false
		if c.board != nil && c.board.ID == inv.id {
			c.board.Restore(inv.board, inv.boardPatch)
			c.upsertSummaryLocked(c.board.Summary())
			restored = true
		}
		for i := range c.boards {
			if c.boards[i].ID == inv.id {
				c.boards[i].Restore(inv.board, inv.boardPatch)
				restored = true
			}
		}
		return restored
	}
	return false
}
