package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type Store struct {
	pool          *pgxpool.Pool
	boards        *BoardRepo
	columns       *ColumnRepo
	cards         *CardRepo
	cardLabels    *CardLabelRepo
	cardAssignees *CardAssigneeRepo
	activities    *ActivityRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:          pool,
		boards:        NewBoardRepo(pool),
		columns:       NewColumnRepo(pool),
		cards:         NewCardRepo(pool),
		cardLabels:    NewCardLabelRepo(pool),
		cardAssignees: NewCardAssigneeRepo(pool),
		activities:    NewActivityRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Boards() domain.BoardRepository               { return s.boards }
func (s *Store) Columns() domain.ColumnRepository             { return s.columns }
func (s *Store) Cards() domain.CardRepository                 { return s.cards }
func (s *Store) CardLabels() domain.CardLabelRepository       { return s.cardLabels }
func (s *Store) CardAssignees() domain.CardAssigneeRepository { return s.cardAssignees }
func (s *Store) Activities() domain.ActivityRepository        { return s.activities }
