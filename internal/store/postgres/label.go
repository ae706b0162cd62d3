package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type CardLabelRepo struct {
	pool *pgxpool.Pool
}

func NewCardLabelRepo(pool *pgxpool.Pool) *CardLabelRepo {
	return &CardLabelRepo{pool: pool}
}

// ListByBoard returns the label set defined on the board.
func (r *CardLabelRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]domain.Label, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, name, color FROM labels WHERE board_id = $1 ORDER BY name`,
		boardID.String(),
	)
	if err != nil {
		return nil, wrap("cardLabelRepo.ListByBoard", err)
	}
	defer rows.Close()

	labels, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Label])
	if err != nil {
		return nil, wrap("cardLabelRepo.ListByBoard: collect", err)
	}

	return labels, nil
}

func (r *CardLabelRepo) ListAssignments(ctx context.Context, boardID domain.ID) ([]domain.CardLabel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT card_id, label_id FROM card_labels WHERE board_id = $1`, boardID.String(),
	)
	if err != nil {
		return nil, wrap("cardLabelRepo.ListAssignments", err)
	}
	defer rows.Close()

	var out []domain.CardLabel
	for rows.Next() {
		var cardID, labelID string
		if err := rows.Scan(&cardID, &labelID); err != nil {
			return nil, wrap("cardLabelRepo.ListAssignments: scan", err)
		}
		out = append(out, domain.CardLabel{CardID: domain.ConfirmedID(cardID), LabelID: labelID, BoardID: boardID})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("cardLabelRepo.ListAssignments: rows", err)
	}

	return out, nil
}

// Add attaches the label; attaching twice is a no-op.
func (r *CardLabelRepo) Add(ctx context.Context, cardID domain.ID, labelID string) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO card_labels (card_id, label_id, board_id)
		 SELECT id, $2, board_id FROM cards WHERE id = $1
		 ON CONFLICT DO NOTHING`,
		cardID.String(), labelID,
	)
	if err != nil {
		return wrap("cardLabelRepo.Add", err)
	}
	if tag.RowsAffected() == 0 {
		if err := r.cardExists(ctx, cardID); err != nil {
			return err
		}
	}

	return nil
}

func (r *CardLabelRepo) Remove(ctx context.Context, cardID domain.ID, labelID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM card_labels WHERE card_id = $1 AND label_id = $2`, cardID.String(), labelID,
	)
	if err != nil {
		return wrap("cardLabelRepo.Remove", err)
	}

	return nil
}

func (r *CardLabelRepo) cardExists(ctx context.Context, cardID domain.ID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1)`, cardID.String(),
	).Scan(&exists); err != nil {
		return wrap("cardLabelRepo.Add", err)
	}
	if !exists {
		return notFound("cardLabelRepo.Add")
	}
	return nil
}

type CardAssigneeRepo struct {
	pool *pgxpool.Pool
}

func NewCardAssigneeRepo(pool *pgxpool.Pool) *CardAssigneeRepo {
	return &CardAssigneeRepo{pool: pool}
}

func (r *CardAssigneeRepo) ListAssignments(ctx context.Context, boardID domain.ID) ([]domain.CardAssignee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT card_id, user_id FROM card_assignees WHERE board_id = $1`, boardID.String(),
	)
	if err != nil {
		return nil, wrap("cardAssigneeRepo.ListAssignments", err)
	}
	defer rows.Close()

	var out []domain.CardAssignee
	for rows.Next() {
		var cardID, userID string
		if err := rows.Scan(&cardID, &userID); err != nil {
			return nil, wrap("cardAssigneeRepo.ListAssignments: scan", err)
		}
		out = append(out, domain.CardAssignee{CardID: domain.ConfirmedID(cardID), UserID: userID, BoardID: boardID})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("cardAssigneeRepo.ListAssignments: rows", err)
	}

	return out, nil
}

func (r *CardAssigneeRepo) Add(ctx context.Context, cardID domain.ID, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO card_assignees (card_id, user_id, board_id)
		 SELECT id, $2, board_id FROM cards WHERE id = $1
		 ON CONFLICT DO NOTHING`,
		cardID.String(), userID,
	)
	if err != nil {
		return wrap("cardAssigneeRepo.Add", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM cards WHERE id = $1)`, cardID.String(),
		).Scan(&exists); err != nil {
			return wrap("cardAssigneeRepo.Add", err)
		}
		if !exists {
			return notFound("cardAssigneeRepo.Add")
		}
	}

	return nil
}

func (r *CardAssigneeRepo) Remove(ctx context.Context, cardID domain.ID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM card_assignees WHERE card_id = $1 AND user_id = $2`, cardID.String(), userID,
	)
	if err != nil {
		return wrap("cardAssigneeRepo.Remove", err)
	}

	return nil
}
