package session

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/gosuda/boardsync/internal/domain"
)

// FetchBoard loads the board row, its columns, cards and card sub-collections
// concurrently and assembles the tree.
func FetchBoard(ctx context.Context, store domain.RemoteStore, id domain.ID) (*domain.Board, error) {
	var (
		board     *domain.Board
		columns   []*domain.Column
		cards     []*domain.Card
		labels    []domain.Label
		labelRows []domain.CardLabel
		assignees []domain.CardAssignee
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		board, err = store.Boards().GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		columns, err = store.Columns().ListByBoard(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = store.Cards().ListByBoard(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		labels, err = store.CardLabels().ListByBoard(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		labelRows, err = store.CardLabels().ListAssignments(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		assignees, err = store.CardAssignees().ListAssignments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch board %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch board %s: %w", id, err)
	}

	return assemble(board, columns, cards, labels, labelRows, assignees), nil
}

func assemble(
	board *domain.Board,
	columns []*domain.Column,
	cards []*domain.Card,
	labels []domain.Label,
	labelRows []domain.CardLabel,
	assignees []domain.CardAssignee,
) *domain.Board {
	byLabel := make(map[string]domain.Label, len(labels))
	for _, l := range labels {
		byLabel[l.ID] = l
	}
	cardLabels := make(map[domain.ID][]domain.Label)
	for _, row := range labelRows {
		l, ok := byLabel[row.LabelID]
		if !ok {
			l = domain.Label{ID: row.LabelID}
		}
		cardLabels[row.CardID] = append(cardLabels[row.CardID], l)
	}
	cardUsers := make(map[domain.ID][]domain.User)
	for _, row := range assignees {
		cardUsers[row.CardID] = append(cardUsers[row.CardID], domain.User{ID: row.UserID})
	}

	byColumn := make(map[domain.ID][]*domain.Card, len(columns))
	for _, card := range cards {
		card.Labels = cardLabels[card.ID]
		if card.Labels == nil {
			card.Labels = []domain.Label{}
		}
		card.Assignees = cardUsers[card.ID]
		if card.Assignees == nil {
			card.Assignees = []domain.User{}
		}
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}

	tree := *board
	tree.Labels = labels
	tree.Columns = slices.Clone(columns)
	for _, col := range tree.Columns {
		col.Cards = byColumn[col.ID]
		if col.Cards == nil {
			col.Cards = []*domain.Card{}
		}
	}
	return &tree
}
