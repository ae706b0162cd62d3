package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

const cardColumns = `id, column_id, board_id, title, description, position, priority, due_date, created_by`

func (r *CardRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE board_id = $1 ORDER BY column_id, position, created_at`,
		boardID.String(),
	)
	if err != nil {
		return nil, wrap("cardRepo.ListByBoard", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, wrap("cardRepo.ListByBoard: scan", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("cardRepo.ListByBoard: rows", err)
	}

	return cards, nil
}

func (r *CardRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Card, error) {
	c, err := scanCard(r.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id.String(),
	))
	if err != nil {
		return nil, wrap("cardRepo.GetByID", err)
	}

	return c, nil
}

func (r *CardRepo) MaxPosition(ctx context.Context, columnID domain.ID) (int, bool, error) {
	var pos *int
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(position) FROM cards WHERE column_id = $1`, columnID.String(),
	).Scan(&pos)
	if err != nil {
		return 0, false, wrap("cardRepo.MaxPosition", err)
	}
	if pos == nil {
		return 0, false, nil
	}

	return *pos, true, nil
}

// Create inserts the card at c.Position and shifts the siblings at or after
// it down by one.
func (r *CardRepo) Create(ctx context.Context, c *domain.Card) (*domain.Card, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var created *domain.Card
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cards (id, column_id, board_id, title, description, position, priority, due_date, created_by, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			id, c.ColumnID.String(), c.BoardID.String(), c.Title, c.Description,
			c.Position, c.Priority, c.DueDate, c.CreatedBy, now,
		); err != nil {
			return err
		}
		if err := reorder(ctx, tx, "cards", "column_id", c.ColumnID.String(), id, c.Position); err != nil {
			return err
		}
		var err error
		created, err = scanCard(tx.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, wrap("cardRepo.Create", err)
	}

	return created, nil
}

// Update merges the non-structural fields of p. ColumnID and Position are
// ignored; see Move.
func (r *CardRepo) Update(ctx context.Context, id domain.ID, p domain.CardPatch) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET title = COALESCE($1, title), description = COALESCE($2, description),
		        priority = COALESCE($3, priority), due_date = COALESCE($4, due_date), updated_at = now()
		 WHERE id = $5`,
		p.Title, p.Description, p.Priority, p.DueDate, id.String(),
	)
	if err != nil {
		return wrap("cardRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("cardRepo.Update")
	}

	return nil
}

// Move re-parents the card to toColumnID at toIndex and renumbers the source
// and destination columns in one transaction.
func (r *CardRepo) Move(ctx context.Context, id, toColumnID domain.ID, toIndex int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var from string
		if err := tx.QueryRow(ctx,
			`SELECT column_id FROM cards WHERE id = $1 FOR UPDATE`, id.String(),
		).Scan(&from); err != nil {
			return err
		}

		to := toColumnID.String()
		if from != to {
			if _, err := tx.Exec(ctx,
				`UPDATE cards SET column_id = $1, updated_at = now() WHERE id = $2`, to, id.String(),
			); err != nil {
				return err
			}
			if err := renumber(ctx, tx, "cards", "column_id", from); err != nil {
				return err
			}
		}
		return reorder(ctx, tx, "cards", "column_id", to, id.String(), toIndex)
	})
	if err != nil {
		return wrap("cardRepo.Move", err)
	}

	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id domain.ID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var columnID string
		if err := tx.QueryRow(ctx,
			`DELETE FROM cards WHERE id = $1 RETURNING column_id`, id.String(),
		).Scan(&columnID); err != nil {
			return err
		}
		return renumber(ctx, tx, "cards", "column_id", columnID)
	})
	if err != nil {
		return wrap("cardRepo.Delete", err)
	}

	return nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		c                     domain.Card
		id, columnID, boardID string
	)
	if err := row.Scan(
		&id, &columnID, &boardID, &c.Title, &c.Description, &c.Position,
		&c.Priority, &c.DueDate, &c.CreatedBy,
	); err != nil {
		return nil, err
	}
	c.ID = domain.ConfirmedID(id)
	c.ColumnID = domain.ConfirmedID(columnID)
	c.BoardID = domain.ConfirmedID(boardID)
	return &c, nil
}
