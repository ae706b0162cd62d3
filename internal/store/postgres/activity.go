package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// Create inserts the activity, filling ID and CreatedAt when empty.
func (r *ActivityRepo) Create(ctx context.Context, a *domain.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO board_activities (id, board_id, user_id, action, entity_type, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.BoardID.String(), a.UserID, a.Action, a.EntityType, metadata, a.CreatedAt,
	)
	if err != nil {
		return wrap("activityRepo.Create", err)
	}

	return nil
}

func (r *ActivityRepo) ListByBoard(ctx context.Context, boardID domain.ID, limit int) ([]*domain.Activity, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, action, entity_type, metadata, created_at
		 FROM board_activities WHERE board_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		boardID.String(), limit,
	)
	if err != nil {
		return nil, wrap("activityRepo.ListByBoard", err)
	}
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		a := domain.Activity{BoardID: boardID}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, wrap("activityRepo.ListByBoard: scan", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("activityRepo.ListByBoard: rows", err)
	}

	return out, nil
}
