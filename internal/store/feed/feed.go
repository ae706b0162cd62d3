// Package feed decorates a domain.RemoteStore so that every successful write
// is announced as a row notification on the board's change scope.
package feed

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/domain"
)

// Store publishes a change after each committed write. Reads pass through.
// A publish failure is logged and never fails the write, since the row is
// already committed and subscribers recover through a reload.
type Store struct {
	next domain.RemoteStore
	pub  domain.ChangePublisher

	boards        *boardRepo
	columns       *columnRepo
	cards         *cardRepo
	cardLabels    *cardLabelRepo
	cardAssignees *cardAssigneeRepo
	activities    *activityRepo
}

func New(next domain.RemoteStore, pub domain.ChangePublisher) *Store {
	s := &Store{next: next, pub: pub}
	s.boards = &boardRepo{BoardRepository: next.Boards(), s: s}
	s.columns = &columnRepo{ColumnRepository: next.Columns(), s: s}
	s.cards = &cardRepo{CardRepository: next.Cards(), s: s}
	s.cardLabels = &cardLabelRepo{CardLabelRepository: next.CardLabels(), s: s}
	s.cardAssignees = &cardAssigneeRepo{CardAssigneeRepository: next.CardAssignees(), s: s}
	s.activities = &activityRepo{ActivityRepository: next.Activities(), s: s}
	return s
}

func (s *Store) Boards() domain.BoardRepository               { return s.boards }
func (s *Store) Columns() domain.ColumnRepository             { return s.columns }
func (s *Store) Cards() domain.CardRepository                 { return s.cards }
func (s *Store) CardLabels() domain.CardLabelRepository       { return s.cardLabels }
func (s *Store) CardAssignees() domain.CardAssigneeRepository { return s.cardAssignees }
func (s *Store) Activities() domain.ActivityRepository        { return s.activities }

func (s *Store) publish(ctx context.Context, boardID domain.ID, typ domain.EventType, table domain.Table, row any) {
	c, err := domain.NewChange(typ, table, row)
	if err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("encode change notification")
		return
	}
	// The write is committed; a cancelled caller must not suppress the notification.
	ctx = context.WithoutCancel(ctx)
	if err := s.pub.PublishChange(ctx, domain.BoardScope(boardID), c); err != nil {
		log.Warn().Err(err).
			Str("board_id", boardID.String()).
			Str("table", string(table)).
			Str("event", string(typ)).
			Msg("publish change notification")
	}
}

// republishCards announces the current rows of a column's cards positioned
// at or after from, except skip, after a renumbering write shifted them.
func (s *Store) republishCards(ctx context.Context, boardID, columnID domain.ID, from int, skip domain.ID) {
	cards, err := s.next.Cards().ListByBoard(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("reload cards for notification")
		return
	}
	for _, c := range cards {
		if c.ColumnID == columnID && c.Position >= from && c.ID != skip {
			s.publish(ctx, boardID, domain.EventUpdate, domain.TableCards, c)
		}
	}
}

func (s *Store) republishColumns(ctx context.Context, boardID domain.ID, from int, skip domain.ID) {
	cols, err := s.next.Columns().ListByBoard(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("reload columns for notification")
		return
	}
	for _, c := range cols {
		if c.Position >= from && c.ID != skip {
			s.publish(ctx, boardID, domain.EventUpdate, domain.TableColumns, c)
		}
	}
}
