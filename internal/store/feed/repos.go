package feed

import (
	"context"

	"github.com/gosuda/boardsync/internal/domain"
)

type boardRepo struct {
	domain.BoardRepository
	s *Store
}

func (r *boardRepo) Create(ctx context.Context, b *domain.Board) (*domain.Board, error) {
	created, err := r.BoardRepository.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	r.s.publish(ctx, created.ID, domain.EventInsert, domain.TableBoards, created)
	return created, nil
}

func (r *boardRepo) Update(ctx context.Context, id domain.ID, p domain.BoardPatch) error {
	if err := r.BoardRepository.Update(ctx, id, p); err != nil {
		return err
	}
	if b, err := r.BoardRepository.GetByID(ctx, id); err == nil {
		r.s.publish(ctx, id, domain.EventUpdate, domain.TableBoards, b)
	}
	return nil
}

func (r *boardRepo) Delete(ctx context.Context, id domain.ID) error {
	if err := r.BoardRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.s.publish(ctx, id, domain.EventDelete, domain.TableBoards, map[string]string{"id": id.String()})
	return nil
}

type columnRepo struct {
	domain.ColumnRepository
	s *Store
}

func (r *columnRepo) Create(ctx context.Context, c *domain.Column) (*domain.Column, error) {
	created, err := r.ColumnRepository.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	r.s.publish(ctx, created.BoardID, domain.EventInsert, domain.TableColumns, created)
	// Columns at or after the new one were shifted right.
	r.s.republishColumns(ctx, created.BoardID, created.Position+1, created.ID)
	return created, nil
}

func (r *columnRepo) Update(ctx context.Context, id domain.ID, p domain.ColumnPatch) error {
	if err := r.ColumnRepository.Update(ctx, id, p); err != nil {
		return err
	}
	col, err := r.ColumnRepository.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	if p.Position != nil {
		r.s.republishColumns(ctx, col.BoardID, 0, domain.ID{})
		return nil
	}
	r.s.publish(ctx, col.BoardID, domain.EventUpdate, domain.TableColumns, col)
	return nil
}

func (r *columnRepo) Delete(ctx context.Context, id domain.ID) error {
	col, err := r.ColumnRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.ColumnRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.s.publish(ctx, col.BoardID, domain.EventDelete, domain.TableColumns, col)
	r.s.republishColumns(ctx, col.BoardID, 0, domain.ID{})
	return nil
}

type cardRepo struct {
	domain.CardRepository
	s *Store
}

func (r *cardRepo) Create(ctx context.Context, c *domain.Card) (*domain.Card, error) {
	created, err := r.CardRepository.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	r.s.publish(ctx, created.BoardID, domain.EventInsert, domain.TableCards, created)
	r.s.republishCards(ctx, created.BoardID, created.ColumnID, created.Position+1, created.ID)
	return created, nil
}

func (r *cardRepo) Update(ctx context.Context, id domain.ID, p domain.CardPatch) error {
	if err := r.CardRepository.Update(ctx, id, p); err != nil {
		return err
	}
	if c, err := r.CardRepository.GetByID(ctx, id); err == nil {
		r.s.publish(ctx, c.BoardID, domain.EventUpdate, domain.TableCards, c)
	}
	return nil
}

func (r *cardRepo) Move(ctx context.Context, id, toColumnID domain.ID, toIndex int) error {
	before, err := r.CardRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.CardRepository.Move(ctx, id, toColumnID, toIndex); err != nil {
		return err
	}
	if before.ColumnID != toColumnID {
		r.s.republishCards(ctx, before.BoardID, before.ColumnID, 0, domain.ID{})
	}
	r.s.republishCards(ctx, before.BoardID, toColumnID, 0, domain.ID{})
	return nil
}

func (r *cardRepo) Delete(ctx context.Context, id domain.ID) error {
	card, err := r.CardRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.CardRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.s.publish(ctx, card.BoardID, domain.EventDelete, domain.TableCards, card)
	r.s.republishCards(ctx, card.BoardID, card.ColumnID, 0, domain.ID{})
	return nil
}

type cardLabelRepo struct {
	domain.CardLabelRepository
	s *Store
}

func (r *cardLabelRepo) Add(ctx context.Context, cardID domain.ID, labelID string) error {
	if err := r.CardLabelRepository.Add(ctx, cardID, labelID); err != nil {
		return err
	}
	r.s.publishMembership(ctx, cardID, domain.EventInsert, domain.TableCardLabels, func(boardID domain.ID) any {
		return domain.CardLabel{CardID: cardID, LabelID: labelID, BoardID: boardID}
	})
	return nil
}

func (r *cardLabelRepo) Remove(ctx context.Context, cardID domain.ID, labelID string) error {
	if err := r.CardLabelRepository.Remove(ctx, cardID, labelID); err != nil {
		return err
	}
	r.s.publishMembership(ctx, cardID, domain.EventDelete, domain.TableCardLabels, func(boardID domain.ID) any {
		return domain.CardLabel{CardID: cardID, LabelID: labelID, BoardID: boardID}
	})
	return nil
}

type cardAssigneeRepo struct {
	domain.CardAssigneeRepository
	s *Store
}

func (r *cardAssigneeRepo) Add(ctx context.Context, cardID domain.ID, userID string) error {
	if err := r.CardAssigneeRepository.Add(ctx, cardID, userID); err != nil {
		return err
	}
	r.s.publishMembership(ctx, cardID, domain.EventInsert, domain.TableCardAssignees, func(boardID domain.ID) any {
		return domain.CardAssignee{CardID: cardID, UserID: userID, BoardID: boardID}
	})
	return nil
}

func (r *cardAssigneeRepo) Remove(ctx context.Context, cardID domain.ID, userID string) error {
	if err := r.CardAssigneeRepository.Remove(ctx, cardID, userID); err != nil {
		return err
	}
	r.s.publishMembership(ctx, cardID, domain.EventDelete, domain.TableCardAssignees, func(boardID domain.ID) any {
		return domain.CardAssignee{CardID: cardID, UserID: userID, BoardID: boardID}
	})
	return nil
}

type activityRepo struct {
	domain.ActivityRepository
	s *Store
}

func (r *activityRepo) Create(ctx context.Context, a *domain.Activity) error {
	if err := r.ActivityRepository.Create(ctx, a); err != nil {
		return err
	}
	r.s.publish(ctx, a.BoardID, domain.EventInsert, domain.TableActivities, a)
	return nil
}

func (s *Store) publishMembership(ctx context.Context, cardID domain.ID, typ domain.EventType, table domain.Table, row func(boardID domain.ID) any) {
	card, err := s.next.Cards().GetByID(ctx, cardID)
	if err != nil {
		return
	}
	s.publish(ctx, card.BoardID, typ, table, row(card.BoardID))
}
