package coordinator

import (
	"context"
	"slices"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/domain"
)

// ToggleLabel attaches label to the card, or detaches it when already
// attached. It reports whether the label is attached afterwards.
func (c *Coordinator) ToggleLabel(ctx context.Context, cardID domain.ID, label domain.Label) (bool, error) {
	const op = "coordinator.Coordinator.ToggleLabel"

	if err := c.validateToggle(op, cardID, label.ID); err != nil {
		return false, err
	}

	var attached bool
	err := c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(cardID)},
		pending: &pendingOp{op: op, table: domain.TableCardLabels, entityID: cardID},
		apply: func() cache.Inverse {
			card, ok := c.cache.Card(cardID)
			if !ok {
				return cache.Inverse{}
			}
			i := slices.IndexFunc(card.Labels, func(l domain.Label) bool { return l.ID == label.ID })
			next := slices.Clone(card.Labels)
			if i >= 0 {
				next = slices.Delete(next, i, i+1)
			} else {
				next = append(next, label)
			}
			attached = i < 0
			inv, _ := c.cache.SetCardLabels(cardID, next)
			return inv
		},
		remote: func(ctx context.Context) error {
			if attached {
				return c.store.CardLabels().Add(ctx, cardID, label.ID)
			}
			return c.store.CardLabels().Remove(ctx, cardID, label.ID)
		},
		settles: []domain.ID{cardID},
	})
	if err != nil {
		return false, err
	}
	return attached, nil
}

// ToggleAssignee assigns user to the card, or unassigns when already
// assigned. It reports whether the user is assigned afterwards.
func (c *Coordinator) ToggleAssignee(ctx context.Context, cardID domain.ID, user domain.User) (bool, error) {
	const op = "coordinator.Coordinator.ToggleAssignee"

	if err := c.validateToggle(op, cardID, user.ID); err != nil {
		return false, err
	}

	var assigned bool
	err := c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(cardID)},
		pending: &pendingOp{op: op, table: domain.TableCardAssignees, entityID: cardID},
		apply: func() cache.Inverse {
			card, ok := c.cache.Card(cardID)
			if !ok {
				return cache.Inverse{}
			}
			i := slices.IndexFunc(card.Assignees, func(u domain.User) bool { return u.ID == user.ID })
			next := slices.Clone(card.Assignees)
			if i >= 0 {
				next = slices.Delete(next, i, i+1)
			} else {
				next = append(next, user)
			}
			assigned = i < 0
			inv, _ := c.cache.SetCardAssignees(cardID, next)
			return inv
		},
		remote: func(ctx context.Context) error {
			if assigned {
				return c.store.CardAssignees().Add(ctx, cardID, user.ID)
			}
			return c.store.CardAssignees().Remove(ctx, cardID, user.ID)
		},
		settles: []domain.ID{cardID},
	})
	if err != nil {
		return false, err
	}
	return assigned, nil
}

// validateToggle requires a confirmed card that is loaded in the cache, since
// the toggle direction is read from the cached collection.
func (c *Coordinator) validateToggle(op string, cardID domain.ID, memberID string) error {
	switch {
	case !cardID.IsConfirmed():
		return domain.Validationf(op, "card %q is not confirmed", cardID)
	case memberID == "":
		return domain.Validationf(op, "id is required")
	}
	if _, ok := c.cache.Card(cardID); !ok {
		return domain.Validationf(op, "card %q is not loaded", cardID)
	}
	return nil
}
