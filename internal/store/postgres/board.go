package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

const boardColumns = `id, title, description, user_id, created_at, updated_at`

func (r *BoardRepo) List(ctx context.Context) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+boardColumns+` FROM boards ORDER BY created_at DESC LIMIT 1000`,
	)
	if err != nil {
		return nil, wrap("boardRepo.List", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, wrap("boardRepo.List: scan", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("boardRepo.List: rows", err)
	}

	return boards, nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Board, error) {
	b, err := scanBoard(r.pool.QueryRow(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE id = $1`, id.String(),
	))
	if err != nil {
		return nil, wrap("boardRepo.GetByID", err)
	}

	return b, nil
}

func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) (*domain.Board, error) {
	id := b.ID.String()
	if !b.ID.IsConfirmed() {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	created, err := scanBoard(r.pool.QueryRow(ctx,
		`INSERT INTO boards (id, title, description, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+boardColumns,
		id, strings.TrimSpace(b.Title), b.Description, b.OwnerID, now,
	))
	if err != nil {
		return nil, wrap("boardRepo.Create", err)
	}

	return created, nil
}

func (r *BoardRepo) Update(ctx context.Context, id domain.ID, p domain.BoardPatch) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE boards SET title = COALESCE($1, title), description = COALESCE($2, description), updated_at = now()
		 WHERE id = $3`,
		p.Title, p.Description, id.String(),
	)
	if err != nil {
		return wrap("boardRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("boardRepo.Update")
	}

	return nil
}

// Delete removes the board; columns, cards and join rows cascade.
func (r *BoardRepo) Delete(ctx context.Context, id domain.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id.String())
	if err != nil {
		return wrap("boardRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("boardRepo.Delete")
	}

	return nil
}

func scanBoard(row pgx.Row) (*domain.Board, error) {
	var (
		b  domain.Board
		id string
	)
	if err := row.Scan(&id, &b.Title, &b.Description, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = domain.ConfirmedID(id)
	return &b, nil
}
