package coordinator

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

// NewCard is the input of CreateCard. BoardID may be left empty when the
// column is present in the cache.
type NewCard struct {
	BoardID     domain.ID
	ColumnID    domain.ID
	Title       string
	Description *string
	Priority    *domain.Priority
	DueDate     *time.Time
	// Position is the index to insert at. Nil appends to the column.
	Position *int
}

// CreateCard inserts a temporary card at once and replaces it with the
// confirmed row when the store answers.
func (c *Coordinator) CreateCard(ctx context.Context, in NewCard) (*domain.Card, error) {
	const op = "coordinator.Coordinator.CreateCard"

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, domain.Validationf(op, "title is required")
	case !in.ColumnID.IsConfirmed():
		return nil, domain.Validationf(op, "column %q is not confirmed", in.ColumnID)
	case in.Priority != nil && !in.Priority.Valid():
		return nil, domain.Validationf(op, "invalid priority %q", *in.Priority)
	case in.Position != nil && *in.Position < 0:
		return nil, domain.Validationf(op, "position must not be negative")
	}

	boardID := in.BoardID
	if col, ok := c.cache.Column(in.ColumnID); ok && boardID.IsZero() {
		boardID = col.BoardID
	}
	if !boardID.IsConfirmed() {
		return nil, domain.Validationf(op, "board of column %q is unknown", in.ColumnID)
	}
	index := math.MaxInt
	if in.Position != nil {
		index = *in.Position
	}

	temp := &domain.Card{
		ID:          domain.NewTemporaryID(),
		ColumnID:    in.ColumnID,
		BoardID:     boardID,
		Title:       title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedBy:   c.opts.UserID,
		Labels:      []domain.Label{},
		Assignees:   []domain.User{},
	}

	var confirmed *domain.Card
	err := c.run(ctx, mutation{
		op:   op,
		keys: []string{createKey(domain.TableCards, in.ColumnID), entityKey(temp.ID)},
		pending: &pendingOp{
			op: op, table: domain.TableCards, entityID: temp.ID,
			parentID: in.ColumnID, title: title, create: true,
		},
		apply: func() cache.Inverse {
			inv, _ := c.cache.InsertCard(temp, index)
			return inv
		},
		remote: func(ctx context.Context) error {
			row := *temp
			row.ID = domain.ID{}
			if in.Position != nil {
				row.Position = *in.Position
			} else {
				last, ok, err := c.store.Cards().MaxPosition(ctx, in.ColumnID)
				if err != nil {
					return err
				}
				row.Position = position.Next(last, ok)
			}
			created, err := c.store.Cards().Create(ctx, &row)
			if err != nil {
				return err
			}
			confirmed = created
			return nil
		},
		confirm: func(bool) {
			if !c.cache.ReplaceCardID(temp.ID, confirmed) {
				c.cache.UpsertCard(confirmed)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, boardID, domain.ActionCardCreated, "card", map[string]any{
		"card_id": confirmed.ID.String(), "title": confirmed.Title,
	})
	if card, ok := c.cache.Card(confirmed.ID); ok {
		return card, nil
	}
	return confirmed, nil
}

// UpdateCard merges the non-structural fields of p. Use MoveCard to change a
// card's column or position.
func (c *Coordinator) UpdateCard(ctx context.Context, id domain.ID, p domain.CardPatch) error {
	const op = "coordinator.Coordinator.UpdateCard"

	switch {
	case !id.IsConfirmed():
		return domain.Validationf(op, "card %q is not confirmed", id)
	case p.ColumnID != nil || p.Position != nil:
		return domain.Validationf(op, "column and position changes go through MoveCard")
	case p.Empty():
		return domain.Validationf(op, "empty patch")
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return domain.Validationf(op, "title must not be empty")
	case p.Priority != nil && !p.Priority.Valid():
		return domain.Validationf(op, "invalid priority %q", *p.Priority)
	}

	return c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(id)},
		pending: &pendingOp{op: op, table: domain.TableCards, entityID: id},
		apply: func() cache.Inverse {
			inv, _ := c.cache.UpdateCard(id, p)
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Cards().Update(ctx, id, p)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.UpdateCard(id, p)
			}
		},
		settles: []domain.ID{id},
	})
}

// DeleteCard removes the card. Once confirmed the ID is tombstoned so late
// notifications cannot bring it back.
func (c *Coordinator) DeleteCard(ctx context.Context, id domain.ID) error {
	const op = "coordinator.Coordinator.DeleteCard"

	if !id.IsConfirmed() {
		return domain.Validationf(op, "card %q is not confirmed", id)
	}

	var boardID domain.ID
	if card, ok := c.cache.Card(id); ok {
		boardID = card.BoardID
	}

	err := c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(id)},
		pending: &pendingOp{op: op, table: domain.TableCards, entityID: id},
		apply: func() cache.Inverse {
			inv, _ := c.cache.RemoveCard(id)
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Cards().Delete(ctx, id)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.RemoveCard(id)
			}
			c.cache.Tombstone(id)
		},
		settles: []domain.ID{id},
	})
	if err != nil {
		return err
	}

	c.record(ctx, boardID, domain.ActionCardDeleted, "card", map[string]any{"card_id": id.String()})
	return nil
}

// MoveCard moves the card to toIndex of toColumnID. fromColumnID names the
// column the caller saw the card in.
func (c *Coordinator) MoveCard(ctx context.Context, cardID, fromColumnID, toColumnID domain.ID, toIndex int) error {
	const op = "coordinator.Coordinator.MoveCard"

	switch {
	case !cardID.IsConfirmed():
		return domain.Validationf(op, "card %q is not confirmed", cardID)
	case !toColumnID.IsConfirmed():
		return domain.Validationf(op, "column %q is not confirmed", toColumnID)
	case toIndex < 0:
		return domain.Validationf(op, "index must not be negative")
	}

	var boardID domain.ID
	remoteIndex := toIndex
	err := c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(cardID)},
		pending: &pendingOp{op: op, table: domain.TableCards, entityID: cardID},
		apply: func() cache.Inverse {
			inv, _ := c.cache.MoveCard(cardID, fromColumnID, toColumnID, toIndex)
			if card, ok := c.cache.Card(cardID); ok {
				boardID = card.BoardID
				remoteIndex = card.Position
			}
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Cards().Move(ctx, cardID, toColumnID, remoteIndex)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.MoveCard(cardID, fromColumnID, toColumnID, remoteIndex)
			}
		},
		settles: []domain.ID{cardID},
	})
	if err != nil {
		return err
	}

	c.record(ctx, boardID, domain.ActionCardMoved, "card", map[string]any{
		"card_id":        cardID.String(),
		"from_column_id": fromColumnID.String(),
		"to_column_id":   toColumnID.String(),
		"position":       remoteIndex,
	})
	return nil
}
