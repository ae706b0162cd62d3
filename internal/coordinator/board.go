package coordinator

import (
	"context"
	"strings"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/domain"
)

// CreateBoard inserts a board remotely first and only then adds it to the
// summary list. The caller opens it and creates its default columns.
func (c *Coordinator) CreateBoard(ctx context.Context, title string, description *string) (*domain.Board, error) {
	const op = "coordinator.Coordinator.CreateBoard"

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Validationf(op, "title is required")
	}

	wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	created, err := c.store.Boards().Create(wctx, &domain.Board{
		Title:       title,
		Description: description,
		OwnerID:     c.opts.UserID,
	})
	if err != nil {
		return nil, &domain.MutationError{Op: op, Kind: classify(err), Err: err}
	}
	c.cache.UpsertBoardSummary(*created)
	c.record(ctx, created.ID, domain.ActionBoardCreated, "board", map[string]any{"title": created.Title})
	return created, nil
}

// UpdateBoard merges title/description into the current board and the
// summary list optimistically.
func (c *Coordinator) UpdateBoard(ctx context.Context, id domain.ID, p domain.BoardPatch) error {
	const op = "coordinator.Coordinator.UpdateBoard"

	switch {
	case !id.IsConfirmed():
		return domain.Validationf(op, "board %q is not confirmed", id)
	case p.Title == nil && p.Description == nil:
		return domain.Validationf(op, "empty patch")
	case p.Title != nil && strings.TrimSpace(*p.Title) == "":
		return domain.Validationf(op, "title must not be empty")
	}

	err := c.run(ctx, mutation{
		op:      op,
		keys:    []string{entityKey(id)},
		pending: &pendingOp{op: op, table: domain.TableBoards, entityID: id},
		apply: func() cache.Inverse {
			inv, _ := c.cache.UpdateBoard(id, p)
			return inv
		},
		remote: func(ctx context.Context) error {
			return c.store.Boards().Update(ctx, id, p)
		},
		confirm: func(generationChanged bool) {
			if generationChanged {
				c.cache.UpdateBoard(id, p)
			}
		},
		settles: []domain.ID{id},
	})
	if err != nil {
		return err
	}

	meta := map[string]any{}
	if p.Title != nil {
		meta["title"] = *p.Title
	}
	c.record(ctx, id, domain.ActionBoardUpdated, "board", meta)
	return nil
}

// DeleteBoard deletes remotely, then drops the board and its subtree from
// the cache.
func (c *Coordinator) DeleteBoard(ctx context.Context, id domain.ID) error {
	const op = "coordinator.Coordinator.DeleteBoard"

	if !id.IsConfirmed() {
		return domain.Validationf(op, "board %q is not confirmed", id)
	}

	release, err := c.inflight.acquire(ctx, entityKey(id))
	if err != nil {
		return &domain.MutationError{Op: op, Kind: domain.ErrTransport, Err: err}
	}
	defer release()

	wctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	if err := c.store.Boards().Delete(wctx, id); err != nil {
		return &domain.MutationError{Op: op, Kind: classify(err), Err: err}
	}
	c.cache.RemoveBoard(id)
	return nil
}
