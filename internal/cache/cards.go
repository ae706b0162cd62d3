package cache

import (
	"slices"

	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

// InsertCard places a new card at index (clamped) of its column and renumbers
// the column. Used for optimistic creates.
func (c *Cache) InsertCard(card *domain.Card, index int) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, col := c.findColumn(card.ColumnID)
	if col == nil || c.tombstonedLocked(card.ID) {
		return Inverse{}, false
	}
	if existing, _ := c.findCard(card.ID); existing != nil {
		return Inverse{}, false
	}

	cp := card.Clone()
	cp.BoardID = c.board.ID
	col.Cards = position.Insert(col.Cards, index, cp)
	renumberCards(col.Cards)
	return c.inverse(Inverse{kind: removeCard, id: cp.ID}), true
}

// UpsertCard inserts the card into its column sorted by position, or merges
// the row into the existing card. If the card currently sits in a different
// column than stated, it is moved there.
func (c *Cache) UpsertCard(card *domain.Card) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.board == nil || c.tombstonedLocked(card.ID) {
		return false
	}
	_, target := c.findColumn(card.ColumnID)
	if target == nil {
		return false
	}

	if from, i := c.findCard(card.ID); from != nil {
		existing := from.Cards[i]
		changed := mergeRow(existing, card)
		if from != target || i != card.Position {
			changed = c.moveLocked(existing.ID, from, target, card.Position) || changed
		}
		return changed
	}

	cp := card.Clone()
	cp.BoardID = c.board.ID
	at := position.InsertIndex(target.Cards, cp.Position, func(x *domain.Card) int { return x.Position })
	target.Cards = position.Insert(target.Cards, at, cp)
	renumberCards(target.Cards)
	return true
}

// UpdateCard merges the non-structural fields of p. ColumnID/Position in the
// patch are ignored; use MoveCard for those.
func (c *Cache) UpdateCard(id domain.ID, p domain.CardPatch) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, i := c.findCard(id)
	if col == nil {
		return Inverse{}, false
	}
	card := col.Cards[i]
	before := card.Clone()
	if !card.Apply(p) {
		return Inverse{}, false
	}
	return c.inverse(Inverse{kind: restoreCard, id: id, card: before, cardPatch: p.Fields()}), true
}

// RemoveCard drops the card and renumbers its column.
func (c *Cache) RemoveCard(id domain.ID) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, i := c.findCard(id)
	if col == nil {
		return Inverse{}, false
	}
	card := col.Cards[i]
	col.Cards = position.Remove(col.Cards, i)
	renumberCards(col.Cards)
	return c.inverse(Inverse{kind: reinsertCard, id: id, card: card, columnID: col.ID, index: i}), true
}

// MoveCard removes the card from its source column, inserts it at toIndex of
// the destination and renumbers both columns. Replaying a move whose final
// state is already reached changes nothing. fromColumnID is advisory: the
// card's actual column is used, so a replay after the card left the source
// column still converges.
func (c *Cache) MoveCard(cardID, fromColumnID, toColumnID domain.ID, toIndex int) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, to := c.findColumn(toColumnID)
	current, i := c.findCard(cardID)
	if to == nil || current == nil {
		return Inverse{}, false
	}
	inv := c.inverse(Inverse{kind: moveCardBack, id: cardID, columnID: current.ID, index: i})
	if !c.moveLocked(cardID, current, to, toIndex) {
		return Inverse{}, false
	}
	return inv, true
}

// ReplaceCardID swaps a temporary card for its confirmed counterpart in
// place. Sub-collections already attached locally are kept when the
// confirmed row carries none.
func (c *Cache) ReplaceCardID(tempID domain.ID, confirmed *domain.Card) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, i := c.findCard(tempID)
	if col == nil {
		return false
	}
	if c.tombstonedLocked(confirmed.ID) {
		col.Cards = position.Remove(col.Cards, i)
		renumberCards(col.Cards)
		return false
	}
	if dupCol, j := c.findCard(confirmed.ID); dupCol != nil {
		// A notification already delivered the confirmed row; drop the
		// temporary twin and keep the optimistic placement.
		dup := dupCol.Cards[j]
		dupCol.Cards = position.Remove(dupCol.Cards, j)
		renumberCards(dupCol.Cards)
		col, i = c.findCard(tempID)
		col.Cards[i] = dup
		dup.ColumnID = col.ID
		renumberCards(col.Cards)
		return true
	}

	old := col.Cards[i]
	next := confirmed.Clone()
	next.ColumnID = col.ID
	next.BoardID = c.board.ID
	next.Position = old.Position
	if next.Labels == nil {
		next.Labels = old.Labels
	}
	if next.Assignees == nil {
		next.Assignees = old.Assignees
	}
	col.Cards[i] = next
	return true
}

// SetCardLabels replaces the card's label collection wholesale.
func (c *Cache) SetCardLabels(id domain.ID, labels []domain.Label) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, i := c.findCard(id)
	if col == nil {
		return Inverse{}, false
	}
	card := col.Cards[i]
	if slices.Equal(card.Labels, labels) && (card.Labels == nil) == (labels == nil) {
		return Inverse{}, false
	}
	inv := c.inverse(Inverse{kind: restoreLabels, id: id, labels: card.Labels})
	card.Labels = slices.Clone(labels)
	return inv, true
}

// SetCardAssignees replaces the card's assignee collection wholesale.
func (c *Cache) SetCardAssignees(id domain.ID, users []domain.User) (Inverse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, i := c.findCard(id)
	if col == nil {
		return Inverse{}, false
	}
	card := col.Cards[i]
	if slices.Equal(card.Assignees, users) && (card.Assignees == nil) == (users == nil) {
		return Inverse{}, false
	}
	inv := c.inverse(Inverse{kind: restoreAssignees, id: id, assignees: card.Assignees})
	card.Assignees = slices.Clone(users)
	return inv, true
}

// moveLocked relocates a card and reports whether the tree changed.
func (c *Cache) moveLocked(cardID domain.ID, from, to *domain.Column, toIndex int) bool {
	i := position.IndexOf(from.Cards, func(x *domain.Card) bool { return x.ID == cardID })
	if i < 0 {
		return false
	}
	card := from.Cards[i]

	if from == to {
		toIndex = position.Clamp(toIndex, len(to.Cards)-1)
		if toIndex == i {
			return renumberCards(to.Cards)
		}
		to.Cards = position.Move(to.Cards, i, toIndex)
		renumberCards(to.Cards)
		return true
	}

	from.Cards = position.Remove(from.Cards, i)
	card.ColumnID = to.ID
	to.Cards = position.Insert(to.Cards, toIndex, card)
	renumberCards(from.Cards)
	renumberCards(to.Cards)
	return true
}

// mergeRow copies the scalar fields of a full remote row into dst.
func mergeRow(dst, src *domain.Card) bool {
	changed := false
	if dst.Title != src.Title {
		dst.Title = src.Title
		changed = true
	}
	if !equalStr(dst.Description, src.Description) {
		dst.Description = src.Description
		changed = true
	}
	if !equalPriority(dst.Priority, src.Priority) {
		dst.Priority = src.Priority
		changed = true
	}
	if !equalTime(dst, src) {
		dst.DueDate = src.DueDate
		changed = true
	}
	if src.CreatedBy != "" && dst.CreatedBy != src.CreatedBy {
		dst.CreatedBy = src.CreatedBy
		changed = true
	}
	return changed
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalPriority(a, b *domain.Priority) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *domain.Card) bool {
	if a.DueDate == nil || b.DueDate == nil {
		return a.DueDate == b.DueDate
	}
	return a.DueDate.Equal(*b.DueDate)
}
