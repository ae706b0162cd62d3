// Package cache holds the in-memory board tree that is the single source of
// visible truth for a board view: the current board with its ordered columns
// and cards, plus a flat list of board summaries.
//
// Every operation is pure data-structure manipulation and never fails; callers
// get back booleans describing whether something was found or changed.
// Positions of columns within the board and of cards within a column are kept
// dense (0..n-1) after every structural change.
package cache

import (
	"slices"
	"sort"
	"sync"

	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

// Cache owns the board tree. Readers receive copies and never hold a
// reference into the tree's interior.
type Cache struct {
	mu         sync.RWMutex
	board      *domain.Board
	boards     []domain.Board
	generation uint64
	tombstones map[domain.ID]struct{}
}

func New() *Cache {
	return &Cache{tombstones: make(map[domain.ID]struct{})}
}

// Board returns a copy of the current board tree, or nil when none is loaded.
func (c *Cache) Board() *domain.Board {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.board == nil {
		return nil
	}
	return c.board.Clone()
}

// BoardID returns the ID of the current board, or the zero ID.
func (c *Cache) BoardID() domain.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.board == nil {
		return domain.ID{}
	}
	return c.board.ID
}

// Generation increments on every ReplaceBoard. Pending operations remember the
// generation they were applied against.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Boards returns the board summary list.
func (c *Cache) Boards() []domain.Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.boards)
}

// Column returns a copy of the column with the given ID.
func (c *Cache) Column(id domain.ID) (*domain.Column, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, col := c.findColumn(id)
	if col == nil {
		return nil, false
	}
	return col.Clone(), true
}

// Card returns a copy of the card with the given ID.
func (c *Cache) Card(id domain.ID) (*domain.Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, i := c.findCard(id)
	if col == nil {
		return nil, false
	}
	return col.Cards[i].Clone(), true
}

// ReplaceBoard installs a freshly loaded tree. Columns and cards are sorted by
// position and renumbered. Tombstones are cleared and the generation advances,
// which turns every pending inverse of the old tree into a no-op.
func (c *Cache) ReplaceBoard(b *domain.Board) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.tombstones = make(map[domain.ID]struct{})
	if b == nil {
		c.board = nil
		return c.generation
	}

	tree := b.Clone()
	sortColumns(tree.Columns)
	for _, col := range tree.Columns {
		sortCards(col.Cards)
		for _, card := range col.Cards {
			card.ColumnID = col.ID
			card.BoardID = tree.ID
		}
	}
	c.board = tree
	c.upsertSummaryLocked(tree.Summary())
	return c.generation
}

// SetBoards replaces the summary list.
func (c *Cache) SetBoards(boards []domain.Board) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.boards = make([]domain.Board, len(boards))
	for i := range boards {
		c.boards[i] = boards[i].Summary()
	}
}

// UpsertBoardSummary inserts or replaces one entry of the summary list. New
// boards go first, matching the created_at desc order of the list query.
func (c *Cache) UpsertBoardSummary(b domain.Board) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertSummaryLocked(b.Summary())
}

// RemoveBoard drops a board from the summary list and, when it is the current
// board, the whole subtree.
func (c *Cache) RemoveBoard(id domain.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	if i := slices.IndexFunc(c.boards, func(b domain.Board) bool { return b.ID == id }); i >= 0 {
		c.boards = slices.Delete(c.boards, i, i+1)
		removed = true
	}
	if c.board != nil && c.board.ID == id {
		c.board = nil
		removed = true
	}
	if id.IsConfirmed() {
		c.tombstones[id] = struct{}{}
	}
	return removed
}

// UpdateBoard merges fields into the current board and its summary.
func (c *Cache) UpdateBoard(id domain.ID, p domain.BoardPatch) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	inv := Inverse{}
	if c.board != nil && c.board.ID == id {
		before := c.board.Summary()
		if c.board.Apply(p) {
			changed = true
			inv = c.inverse(Inverse{kind: restoreBoard, id: id, board: &before, boardPatch: p})
			c.upsertSummaryLocked(c.board.Summary())
		}
	}
	if i := slices.IndexFunc(c.boards, func(b domain.Board) bool { return b.ID == id }); i >= 0 {
		before := c.boards[i]
		if c.boards[i].Apply(p) && !changed {
			changed = true
			inv = c.inverse(Inverse{kind: restoreBoard, id: id, board: &before, boardPatch: p})
		}
	}
	return inv, changed
}

// Tombstone records that a confirmed entity was deleted remotely so late
// inserts or confirmations cannot resurrect it.
func (c *Cache) Tombstone(id domain.ID) {
	if !id.IsConfirmed() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tombstones[id] = struct{}{}
}

// Tombstoned reports whether id was deleted remotely since the last ReplaceBoard.
func (c *Cache) Tombstoned(id domain.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tombstones[id]
	return ok
}

func (c *Cache) upsertSummaryLocked(b domain.Board) {
	if i := slices.IndexFunc(c.boards, func(s domain.Board) bool { return s.ID == b.ID }); i >= 0 {
		c.boards[i] = b
		return
	}
	c.boards = append([]domain.Board{b}, c.boards...)
}

func (c *Cache) findColumn(id domain.ID) (int, *domain.Column) {
	if c.board == nil {
		return -1, nil
	}
	for i, col := range c.board.Columns {
		if col.ID == id {
			return i, col
		}
	}
	return -1, nil
}

func (c *Cache) findCard(id domain.ID) (*domain.Column, int) {
	if c.board == nil {
		return nil, -1
	}
	for _, col := range c.board.Columns {
		for i, card := range col.Cards {
			if card.ID == id {
				return col, i
			}
		}
	}
	return nil, -1
}

func (c *Cache) tombstonedLocked(id domain.ID) bool {
	_, ok := c.tombstones[id]
	return ok
}

func sortColumns(cols []*domain.Column) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	renumberColumns(cols)
}

func sortCards(cards []*domain.Card) {
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	renumberCards(cards)
}

func renumberColumns(cols []*domain.Column) bool {
	return position.Renumber(cols,
		func(c *domain.Column) int { return c.Position },
		func(c *domain.Column, p int) { c.Position = p })
}

func renumberCards(cards []*domain.Card) bool {
	return position.Renumber(cards,
		func(c *domain.Card) int { return c.Position },
		func(c *domain.Card, p int) { c.Position = p })
}
