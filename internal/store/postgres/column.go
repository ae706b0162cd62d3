package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/boardsync/internal/domain"
)

type ColumnRepo struct {
	pool *pgxpool.Pool
}

func NewColumnRepo(pool *pgxpool.Pool) *ColumnRepo {
	return &ColumnRepo{pool: pool}
}

const columnColumns = `id, board_id, title, position`

func (r *ColumnRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]*domain.Column, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columnColumns+` FROM columns WHERE board_id = $1 ORDER BY position, created_at`,
		boardID.String(),
	)
	if err != nil {
		return nil, wrap("columnRepo.ListByBoard", err)
	}
	defer rows.Close()

	var cols []*domain.Column
	for rows.Next() {
		c, err := scanColumn(rows)
		if err != nil {
			return nil, wrap("columnRepo.ListByBoard: scan", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("columnRepo.ListByBoard: rows", err)
	}

	return cols, nil
}

func (r *ColumnRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Column, error) {
	c, err := scanColumn(r.pool.QueryRow(ctx,
		`SELECT `+columnColumns+` FROM columns WHERE id = $1`, id.String(),
	))
	if err != nil {
		return nil, wrap("columnRepo.GetByID", err)
	}

	return c, nil
}

func (r *ColumnRepo) MaxPosition(ctx context.Context, boardID domain.ID) (int, bool, error) {
	var pos *int
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(position) FROM columns WHERE board_id = $1`, boardID.String(),
	).Scan(&pos)
	if err != nil {
		return 0, false, wrap("columnRepo.MaxPosition", err)
	}
	if pos == nil {
		return 0, false, nil
	}

	return *pos, true, nil
}

// Create inserts the column at c.Position and shifts the columns at or after
// it to the right.
func (r *ColumnRepo) Create(ctx context.Context, c *domain.Column) (*domain.Column, error) {
	id := uuid.NewString()

	var created *domain.Column
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO columns (id, board_id, title, position) VALUES ($1, $2, $3, $4)`,
			id, c.BoardID.String(), c.Title, c.Position,
		); err != nil {
			return err
		}
		if err := reorder(ctx, tx, "columns", "board_id", c.BoardID.String(), id, c.Position); err != nil {
			return err
		}
		var err error
		created, err = scanColumn(tx.QueryRow(ctx, `SELECT `+columnColumns+` FROM columns WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, wrap("columnRepo.Create", err)
	}

	return created, nil
}

// Update renames the column and, with a position, moves it within its board
// renumbering the siblings.
func (r *ColumnRepo) Update(ctx context.Context, id domain.ID, p domain.ColumnPatch) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var boardID string
		err := tx.QueryRow(ctx,
			`UPDATE columns SET title = COALESCE($1, title), updated_at = now()
			 WHERE id = $2 RETURNING board_id`,
			p.Title, id.String(),
		).Scan(&boardID)
		if err != nil {
			return err
		}
		if p.Position == nil {
			return nil
		}
		return reorder(ctx, tx, "columns", "board_id", boardID, id.String(), *p.Position)
	})
	if err != nil {
		return wrap("columnRepo.Update", err)
	}

	return nil
}

// Delete removes the column with its cards and closes the position gap.
func (r *ColumnRepo) Delete(ctx context.Context, id domain.ID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var boardID string
		if err := tx.QueryRow(ctx,
			`DELETE FROM columns WHERE id = $1 RETURNING board_id`, id.String(),
		).Scan(&boardID); err != nil {
			return err
		}
		return renumber(ctx, tx, "columns", "board_id", boardID)
	})
	if err != nil {
		return wrap("columnRepo.Delete", err)
	}

	return nil
}

func scanColumn(row pgx.Row) (*domain.Column, error) {
	var (
		c           domain.Column
		id, boardID string
	)
	if err := row.Scan(&id, &boardID, &c.Title, &c.Position); err != nil {
		return nil, err
	}
	c.ID = domain.ConfirmedID(id)
	c.BoardID = domain.ConfirmedID(boardID)
	return &c, nil
}

// reorder moves row id to index to (clamped) among the rows sharing parent,
// then renumbers them densely.
func reorder(ctx context.Context, tx pgx.Tx, table, parentColumn, parent, id string, to int) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(
		`WITH ordered AS (
			SELECT id, row_number() OVER (ORDER BY position, created_at) - 1 AS idx
			FROM %[1]s WHERE %[2]s = $1 AND id <> $2
		)
		UPDATE %[1]s t SET position = CASE WHEN o.idx >= $3 THEN o.idx + 1 ELSE o.idx END
		FROM ordered o WHERE t.id = o.id`, table, parentColumn),
		parent, id, to,
	)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET position = $1 WHERE id = $2`, table), to, id,
	); err != nil {
		return err
	}
	return renumber(ctx, tx, table, parentColumn, parent)
}

// renumber rewrites positions of the rows sharing parent to 0..n-1.
func renumber(ctx context.Context, tx pgx.Tx, table, parentColumn, parent string) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(
		`WITH ordered AS (
			SELECT id, row_number() OVER (ORDER BY position, created_at) - 1 AS idx
			FROM %[1]s WHERE %[2]s = $1
		)
		UPDATE %[1]s t SET position = o.idx
		FROM ordered o WHERE t.id = o.id AND t.position <> o.idx`, table, parentColumn),
		parent,
	)
	return err
}
