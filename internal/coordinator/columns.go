package coordinator

import (
	"context"
	"math"
	"strings"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
)

// CreateColumn appends a temporary column (or inserts it at *at) and swaps in
// the confirmed row on success.
func (c *Coordinator) CreateColumn(ctx context.Context, boardID domain.ID, title string, at *int) (*domain.Column, error) {
	const op = "coordinator.Coordinator.CreateColumn"

	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return nil, domain.Validationf(op, "title is required")
	case !boardID.IsConfirmed():
		return nil, domain.Validationf(op, "board %q is not confirmed", boardID)
	case at != nil && *at < 0:
		return nil, domain.Validationf(op, "position must not be negative")
	}

	index := math.MaxInt
	if at != nil {
		index = *at
	}
	temp := &domain.Column{
		ID:      domain.NewTemporaryID(),
		BoardID: boardID,
		Title:   title,
		Cards:   []*domain.Card{},
	}

	var confirmed *domain.Column
	err := c.run(ctx, mutation{
		op:   op,
		keys: []string{createKey(domain.TableColumns, boardID), entityKey(temp.ID)},
		pending: &pendingOp{
			op: op, table: domain.TableColumns, entityID: temp.ID,
			parentID: boardID, title: title, create: true,
		},
		apply: func() cache.Inverse {
			inv, _ := c.cache.InsertColumn(temp, index)
			return inv
		},
		remote: func(ctx context.Context) error {
			row := &domain.Column{BoardID: boardID, Title: title}
			if at != nil {
				row.Position = *at
			} else {
				last, ok, err := c.store.Columns().MaxPosition(ctx, boardID)
				if err != nil {
					return err
				}
				row.Position = position.Next(last, ok)
			}
			created, err := c.store.Columns().Create(ctx, row)
			if err != nil {
				return err
			}
			confirmed = created
			return nil
		},
		confirm: func(bool) {
			if !c.cache.ReplaceColumnID(temp.ID, confirmed) {
				c.cache.UpsertColumn(confirmed)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if col, ok := c.cache.Column(confirmed.ID); ok {
		return col, nil
	}
	return confirmed, nil
}

func (c *Coordinator) UpdateColumn(ctx context.Context, id domain.ID, p domain.ColumnPatch) error {
	const op = "coordinator.Coordinator.UpdateColumn"

	switch {
	case !id.IsConfirmed():
		return domain.Validationf(op, "column %q is not confirmed", id)
	case p.Title == nil && p.Position == nil:
		return domain.Validationf(op, "empty patch")
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return domain.Validationf(op, "title must not be empty")
	case p.Position != nil && *p.Position < 0:
		return domain.Validationf(op, "position must not be negative")
	}

	return c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(id)},
		pending: &pendingOp{op: op, table: domain.TableColumns, entityID: id},
		apply: func() cache.Inverse {
			inv, _ := c.cache.UpdateColumn(id, p)
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Columns().Update(ctx, id, p)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.UpdateColumn(id, p)
			}
		},
		settles: []domain.ID{id},
	})
}

// DeleteColumn removes the column together with its cards.
func (c *Coordinator) DeleteColumn(ctx context.Context, id domain.ID) error {
	const op = "coordinator.Coordinator.DeleteColumn"

	if !id.IsConfirmed() {
		return domain.Validationf(op, "column %q is not confirmed", id)
	}

	var cardIDs []domain.ID
	if col, ok := c.cache.Column(id); ok {
		for _, card := range col.Cards {
			cardIDs = append(cardIDs, card.ID)
		}
	}

	return c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(id)},
		pending: &pendingOp{op: op, table: domain.TableColumns, entityID: id},
		apply: func() cache.Inverse {
			inv, _ := c.cache.RemoveColumn(id)
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Columns().Delete(ctx, id)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.RemoveColumn(id)
			}
			c.cache.Tombstone(id)
			for _, cardID := range cardIDs {
				c.cache.Tombstone(cardID)
			}
		},
		settles: []domain.ID{id},
	})
}
