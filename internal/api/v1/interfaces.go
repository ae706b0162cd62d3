package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/boardsync/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store and *feed.Store satisfy this interface; the server passes
// the feed-wrapped store so writes made here reach board subscribers.
type DataStore interface {
	domain.RemoteStore
}

// storeError maps a repository failure to an HTTP error.
func storeError(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(msg + ": not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(msg + ": conflict")
	case errors.Is(err, domain.ErrRemoteRejected):
		return huma.Error422UnprocessableEntity(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
