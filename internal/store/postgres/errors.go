package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/boardsync/internal/domain"
)

// wrap annotates err with op and marks answers from the server as remote
// rejections. Connection and context errors are left unmarked so callers see
// them as transport failures.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.Rejected(domain.ErrNotFound))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, domain.Rejected(fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)))
		case "23503":
			return fmt.Errorf("%s: %w", op, domain.Rejected(fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.Message)))
		default:
			return fmt.Errorf("%s: %w", op, domain.Rejected(err))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, domain.Rejected(domain.ErrNotFound))
}
