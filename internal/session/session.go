// Package session holds the per-board-view state of one client: the cache,
// the coordinator that mutates it and the reconciler that merges remote
// changes into it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/coordinator"
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/reconciler"
)

type Options struct {
	Coordinator coordinator.Options
	Reconciler  reconciler.Options
	// ResyncOnFailure reloads the open board after every rolled back mutation.
	ResyncOnFailure bool
}

type Session struct {
	store domain.RemoteStore
	cache *cache.Cache
	coord *coordinator.Coordinator
	rec   *reconciler.Reconciler

	life context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	loadSeq    uint64
	cancelLoad context.CancelFunc
}

// New builds a session. stream may be nil, in which case the session runs
// without live updates.
func New(store domain.RemoteStore, stream domain.ChangeStream, opts Options) *Session {
	c := cache.New()
	life, stop := context.WithCancel(context.Background())

	s := &Session{
		store: store,
		cache: c,
		coord: coordinator.New(store, c, opts.Coordinator),
		life:  life,
		stop:  stop,
	}
	if opts.ResyncOnFailure {
		s.coord.SetResync(s.Resync)
	}
	if stream != nil {
		s.rec = reconciler.New(stream, c, s.coord, opts.Reconciler)
	}
	return s
}

func (s *Session) Cache() *cache.Cache                   { return s.cache }
func (s *Session) Coordinator() *coordinator.Coordinator { return s.coord }

// Reconciler returns nil when the session has no change stream.
func (s *Session) Reconciler() *reconciler.Reconciler { return s.rec }

// Board returns a read-only copy of the open board, or nil.
func (s *Session) Board() *domain.Board { return s.cache.Board() }

func (s *Session) Boards() []domain.Board { return s.cache.Boards() }

// LoadBoards refreshes the board summary list.
func (s *Session) LoadBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := s.store.Boards().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.Session.LoadBoards: %w", err)
	}
	list := make([]domain.Board, len(boards))
	for i, b := range boards {
		list[i] = *b
	}
	s.cache.SetBoards(list)
	return s.cache.Boards(), nil
}

// OpenBoard subscribes to the board's changes and loads its tree. Changes
// that arrive while the tree loads are applied on top of it. A later call
// supersedes an earlier one still in progress: the earlier load is cancelled
// and its result discarded with domain.ErrSuperseded.
func (s *Session) OpenBoard(ctx context.Context, id domain.ID) (*domain.Board, error) {
	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.loadSeq++
	seq := s.loadSeq
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	release := func() {}
	if s.rec != nil {
		release = s.rec.StartHeld(s.life, id)
	}
	s.mu.Unlock()
	defer cancel()
	defer release()

	if s.rec != nil {
		if err := s.rec.WaitActive(loadCtx); err != nil && loadCtx.Err() == nil {
			log.Warn().Err(err).Str("board_id", id.String()).Msg("opening board without live updates")
		}
	}

	tree, err := FetchBoard(loadCtx, s.store, id)

	s.mu.Lock()
	if seq != s.loadSeq {
		s.mu.Unlock()
		return nil, fmt.Errorf("session.Session.OpenBoard: %w", domain.ErrSuperseded)
	}
	if err != nil {
		if s.rec != nil {
			s.rec.Stop()
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("session.Session.OpenBoard: %w", err)
	}
	s.cache.ReplaceBoard(tree)
	s.mu.Unlock()

	release()
	return s.cache.Board(), nil
}

// Resync reloads the open board without touching the subscription. Changes
// delivered during the reload are applied after it. A result for a board that
// is no longer open is dropped.
func (s *Session) Resync(ctx context.Context) error {
	id := s.cache.BoardID()
	if id.IsZero() {
		return nil
	}
	if s.rec != nil && s.rec.BoardID() == id {
		release := s.rec.Hold()
		defer release()
	}

	tree, err := FetchBoard(ctx, s.store, id)
	if err != nil {
		return fmt.Errorf("session.Session.Resync: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.BoardID() == id {
		s.cache.ReplaceBoard(tree)
	}
	return nil
}

// CreateBoard creates a board with the default columns and refreshes the
// board list. It does not open the board.
func (s *Session) CreateBoard(ctx context.Context, title string, description *string) (*domain.Board, error) {
	b, err := s.coord.CreateBoard(ctx, title, description)
	if err != nil {
		return nil, err
	}

	for i, colTitle := range domain.DefaultColumnTitles {
		pos := i
		if _, err := s.coord.CreateColumn(ctx, b.ID, colTitle, &pos); err != nil {
			return b, fmt.Errorf("session.Session.CreateBoard: default column %q: %w", colTitle, err)
		}
	}

	if _, err := s.LoadBoards(ctx); err != nil {
		log.Warn().Err(err).Msg("refreshing board list after create")
	}
	return b, nil
}

func (s *Session) UpdateBoard(ctx context.Context, id domain.ID, p domain.BoardPatch) error {
	return s.coord.UpdateBoard(ctx, id, p)
}

// DeleteBoard deletes the board and, when it is open, closes the view.
func (s *Session) DeleteBoard(ctx context.Context, id domain.ID) error {
	open := s.cache.BoardID() == id
	if err := s.coord.DeleteBoard(ctx, id); err != nil {
		return err
	}
	if open && s.rec != nil {
		s.rec.Stop()
	}
	return nil
}

// Activities lists the newest activity entries of the open board.
func (s *Session) Activities(ctx context.Context, limit int) ([]*domain.Activity, error) {
	id := s.cache.BoardID()
	if id.IsZero() {
		return nil, fmt.Errorf("session.Session.Activities: %w", domain.ErrNotFound)
	}
	acts, err := s.store.Activities().ListByBoard(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("session.Session.Activities: %w", err)
	}
	return acts, nil
}

// Close stops the subscription and any load in progress.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.Stop()
	}
	s.stop()
}

// IsSuperseded reports whether err comes from a load replaced by a newer one.
func IsSuperseded(err error) bool {
	return errors.Is(err, domain.ErrSuperseded)
}
