// Package coordinator is the only component allowed to trigger a remote
// write. Every mutation runs the same protocol: validate, take the entity's
// in-flight slot, record a rollback point, apply optimistically to the cache,
// issue the remote write under a bounded timeout, then either confirm
// (swapping temporary IDs for confirmed ones) or roll back and surface the
// error. Failed writes are never retried.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/cache"
	"github.com/gosuda/boardsync/internal/domain"
)

// Strategy selects how a failed mutation is undone.
type Strategy string

const (
	// StrategyJournal undoes only the entity the mutation touched.
	StrategyJournal Strategy = "journal"
	// StrategySnapshot restores the whole tree captured before the apply. A
	// rollback discards any other optimistic change applied in between.
	StrategySnapshot Strategy = "snapshot"
)

const defaultWriteTimeout = 15 * time.Second

type Options struct {
	// WriteTimeout bounds every remote write. Zero means 15s.
	WriteTimeout time.Duration
	Rollback     Strategy
	// Resync reloads the authoritative board after a rollback. Optional.
	Resync func(ctx context.Context) error
	// UserID is recorded as creator and activity author.
	UserID string
}

type Coordinator struct {
	store    domain.RemoteStore
	cache    *cache.Cache
	opts     Options
	inflight *inflight

	mu       sync.Mutex
	seq      uint64
	pending  map[uint64]*pendingOp
	settled  []func(domain.ID)
	resyncMu sync.Mutex
}

// pendingOp is the token of one optimistic change awaiting confirmation.
type pendingOp struct {
	op       string
	table    domain.Table
	entityID domain.ID
	parentID domain.ID
	title    string
	create   bool
}

func New(store domain.RemoteStore, c *cache.Cache, opts Options) *Coordinator {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Rollback == "" {
		opts.Rollback = StrategyJournal
	}
	return &Coordinator{
		store:    store,
		cache:    c,
		opts:     opts,
		inflight: newInflight(),
		pending:  make(map[uint64]*pendingOp),
	}
}

// SetResync installs the reload hook run after a rollback.
func (c *Coordinator) SetResync(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Resync = fn
}

// PendingCreation reports whether a create of table under parentID with the
// given title is awaiting confirmation.
func (c *Coordinator) PendingCreation(table domain.Table, parentID domain.ID, title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.pending {
		if p.create && p.table == table && p.parentID == parentID && p.title == title {
			return true
		}
	}
	return false
}

// InFlight reports whether an optimistic change of the entity is awaiting
// confirmation.
func (c *Coordinator) InFlight(id domain.ID) bool {
	return c.inflight.busy(id.String())
}

// OnSettled registers fn to run after a mutation of an entity confirmed or
// rolled back.
func (c *Coordinator) OnSettled(fn func(id domain.ID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settled = append(c.settled, fn)
}

// mutation describes one optimistic write.
type mutation struct {
	op      string
	keys    []string
	pending *pendingOp
	// apply performs the optimistic change and returns its inverse.
	apply func() cache.Inverse
	// remote performs the write against the store.
	remote func(ctx context.Context) error
	// confirm runs after a successful write. generationChanged is true when
	// the tree was replaced while the write was in flight.
	confirm func(generationChanged bool)
	// rollback overrides the default inverse/snapshot undo.
	rollback func()
	settles  []domain.ID
}

func (c *Coordinator) run(ctx context.Context, m mutation) error {
	release, err := c.inflight.acquire(ctx, m.keys...)
	if err != nil {
		return &domain.MutationError{Op: m.op, Kind: domain.ErrTransport, Err: err}
	}

	var snap cache.Snapshot
	if c.opts.Rollback == StrategySnapshot {
		snap = c.cache.Snapshot()
	}
	generation := c.cache.Generation()
	inv := m.apply()
	token := c.track(m.pending)

	writeCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	err = m.remote(writeCtx)
	cancel()

	if err == nil {
		if m.confirm != nil {
			m.confirm(c.cache.Generation() != generation)
		}
		c.untrack(token)
		release()
		c.notifySettled(m.settles)
		return nil
	}

	switch {
	case m.rollback != nil:
		m.rollback()
	case c.opts.Rollback == StrategySnapshot:
		c.cache.Restore(snap)
	default:
		c.cache.Apply(inv)
	}
	c.untrack(token)
	release()
	c.notifySettled(m.settles)

	kind := classify(err)
	log.Warn().Err(err).Str("op", m.op).Str("kind", kind.Error()).Msg("optimistic mutation rolled back")

	c.resync(ctx)

	return &domain.MutationError{Op: m.op, Kind: kind, Err: err}
}

func (c *Coordinator) track(p *pendingOp) uint64 {
	if p == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.pending[c.seq] = p
	return c.seq
}

func (c *Coordinator) untrack(token uint64) {
	if token == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, token)
}

func (c *Coordinator) notifySettled(ids []domain.ID) {
	c.mu.Lock()
	fns := append([]func(domain.ID){}, c.settled...)
	c.mu.Unlock()

	for _, id := range ids {
		for _, fn := range fns {
			fn(id)
		}
	}
}

// resync reloads the board after a rollback. Concurrent failures share one
// reload at a time.
func (c *Coordinator) resync(ctx context.Context) {
	c.mu.Lock()
	fn := c.opts.Resync
	c.mu.Unlock()
	if fn == nil {
		return
	}

	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
	defer cancel()
	if err := fn(rctx); err != nil {
		log.Warn().Err(err).Msg("resync after rollback failed")
	}
}

// classify maps a remote error onto the failure taxonomy. Only errors the
// store marked as rejections count as RemoteRejected; everything else,
// timeouts included, is a transport failure.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrRemoteRejected), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		return domain.ErrRemoteRejected
	default:
		return domain.ErrTransport
	}
}

// record inserts an activity row. Failures are logged and never surfaced.
func (c *Coordinator) record(ctx context.Context, boardID domain.ID, action, entityType string, metadata map[string]any) {
	if !boardID.IsConfirmed() {
		return
	}
	a := &domain.Activity{
		BoardID:    boardID,
		UserID:     c.opts.UserID,
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
	defer cancel()
	if err := c.store.Activities().Create(actx, a); err != nil {
		log.Debug().Err(err).Str("action", action).Msg("activity tracking failed")
	}
}

func entityKey(id domain.ID) string { return id.String() }

func createKey(table domain.Table, parentID domain.ID) string {
	return fmt.Sprintf("create:%s:%s", table, parentID)
}
