// Package reconciler merges remote change notifications for the open board
// into the cache. Notifications arrive at least once and in any order;
// applying them is idempotent, deletes always win, and echoes of this
// client's own pending writes are left to the coordinator.
package reconciler

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

// State is the lifecycle of the change subscription.
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateActive
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PendingTracker exposes the coordinator's in-flight mutations.
type PendingTracker interface {
	PendingCreation(table domain.Table, parentID domain.ID, title string) bool
	InFlight(id domain.ID) bool
	OnSettled(fn func(id domain.ID))
}

type Options struct {
	// SubscribeTimeout bounds the wait for the subscription acknowledgement.
	SubscribeTimeout time.Duration
}

type Reconciler struct {
	stream  domain.ChangeStream
	cache   *cache.Cache
	pending PendingTracker
	opts    Options

	mu       sync.Mutex
	epoch    uint64
	state    State
	boardID  domain.ID
	err      error
	ready    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	deferred map[domain.ID][]domain.Change

	// While holds > 0 deliveries are queued in held instead of applied.
	holds    int
	held     []domain.Change
	draining bool

	observerMu sync.RWMutex
	onActivity []func(domain.Activity)
	onChange   []func(domain.Change)
}

func New(stream domain.ChangeStream, c *cache.Cache, pending PendingTracker, opts Options) *Reconciler {
	if opts.SubscribeTimeout <= 0 {
		opts.SubscribeTimeout = 10 * time.Second
	}
	r := &Reconciler{
		stream:   stream,
		cache:    c,
		pending:  pending,
		opts:     opts,
		deferred: make(map[domain.ID][]domain.Change),
	}
	if pending != nil {
		pending.OnSettled(r.settled)
	}
	return r
}

// OnActivity registers an observer for activity notifications.
func (r *Reconciler) OnActivity(fn func(domain.Activity)) {
	r.observerMu.Lock()
	defer r.observerMu.Unlock()
	r.onActivity = append(r.onActivity, fn)
}

// OnChange registers an observer called after a notification was applied.
func (r *Reconciler) OnChange(fn func(domain.Change)) {
	r.observerMu.Lock()
	defer r.observerMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// BoardID returns the board the reconciler is subscribed to.
func (r *Reconciler) BoardID() domain.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.boardID
}

// Start subscribes to boardID, tearing down any previous subscription first.
// It returns without waiting for the acknowledgement; see WaitActive.
func (r *Reconciler) Start(ctx context.Context, boardID domain.ID) {
	r.start(ctx, boardID, 0)
}

// StartHeld is Start with deliveries held from the moment the subscription
// exists. Notifications that arrive before release is called are applied in
// arrival order once it is, so a snapshot fetched in between does not lose
// them.
func (r *Reconciler) StartHeld(ctx context.Context, boardID domain.ID) (release func()) {
	epoch := r.start(ctx, boardID, 1)
	return r.releaser(epoch)
}

// Hold queues deliveries until release is called. Holds nest. A release
// after the reconciler was restarted or stopped does nothing.
func (r *Reconciler) Hold() (release func()) {
	r.mu.Lock()
	r.holds++
	epoch := r.epoch
	r.mu.Unlock()
	return r.releaser(epoch)
}

func (r *Reconciler) releaser(epoch uint64) func() {
	var once sync.Once
	return func() { once.Do(func() { r.release(epoch) }) }
}

func (r *Reconciler) release(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return
	}
	r.holds--
	if r.holds > 0 || r.draining {
		return
	}

	r.draining = true
	defer func() {
		if r.epoch == epoch {
			r.draining = false
		}
	}()
	for len(r.held) > 0 && r.holds == 0 && r.epoch == epoch {
		batch := r.held
		r.held = nil
		boardID := r.boardID
		r.mu.Unlock()
		for _, ch := range batch {
			r.process(boardID, ch)
		}
		r.mu.Lock()
	}
}

func (r *Reconciler) start(ctx context.Context, boardID domain.ID, holds int) uint64 {
	r.Stop()

	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	r.state = StateSubscribing
	r.boardID = boardID
	r.err = nil
	r.ready = make(chan struct{})
	r.cancel = cancel
	r.done = make(chan struct{})
	r.deferred = make(map[domain.ID][]domain.Change)
	r.holds, r.held, r.draining = holds, nil, false
	done, ready := r.done, r.ready
	r.mu.Unlock()

	go r.loop(runCtx, epoch, boardID, ready, done)
	return epoch
}

// WaitActive blocks until the current subscription was acknowledged. It
// returns the subscription error if subscribing failed.
func (r *Reconciler) WaitActive(ctx context.Context) error {
	r.mu.Lock()
	ready := r.ready
	r.mu.Unlock()
	if ready == nil {
		return domain.ErrNotConnected
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return fmt.Errorf("reconciler.Reconciler.WaitActive: %w", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateActive:
		return nil
	case StateError:
		return r.err
	default:
		return domain.ErrNotConnected
	}
}

// Stop closes the subscription and waits for the delivery loop to exit.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.epoch++
	r.cancel = nil
	r.done = nil
	r.state = StateUnsubscribed
	r.boardID = domain.ID{}
	r.holds, r.held, r.draining = 0, nil, false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Reconciler) loop(ctx context.Context, epoch uint64, boardID domain.ID, ready, done chan struct{}) {
	defer close(done)

	subCtx, cancel := context.WithTimeout(ctx, r.opts.SubscribeTimeout)
	sub, err := r.stream.Subscribe(subCtx, domain.BoardScope(boardID), domain.BoardFilters(boardID))
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Str("board_id", boardID.String()).Msg("change subscription failed; live updates disabled")
		}
		r.fail(epoch, fmt.Errorf("reconciler.Reconciler.Start: %w", err))
		close(ready)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Debug().Err(err).Msg("closing change subscription")
		}
	}()

	if !r.transition(epoch, StateActive) {
		close(ready)
		return
	}
	close(ready)
	log.Debug().Str("board_id", boardID.String()).Msg("change subscription active")

	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-sub.Events():
			if !ok {
				log.Warn().Str("board_id", boardID.String()).Msg("change stream closed")
				r.fail(epoch, fmt.Errorf("reconciler.Reconciler: %w", domain.ErrNotConnected))
				return
			}
			r.handle(boardID, ch)
		}
	}
}

func (r *Reconciler) transition(epoch uint64, s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return false
	}
	r.state = s
	return true
}

func (r *Reconciler) fail(epoch uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return
	}
	r.state = StateError
	r.err = err
}

// Handle applies one notification for the subscribed board. The delivery loop
// calls it for every event; it is exported for callers that feed
// notifications from elsewhere.
func (r *Reconciler) Handle(ch domain.Change) {
	boardID := r.BoardID()
	if boardID.IsZero() {
		return
	}
	r.handle(boardID, ch)
}

func (r *Reconciler) handle(boardID domain.ID, ch domain.Change) {
	r.mu.Lock()
	if r.holds > 0 || r.draining {
		r.held = append(r.held, ch)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.process(boardID, ch)
}

func (r *Reconciler) process(boardID domain.ID, ch domain.Change) {
	if !domain.MatchAny(domain.BoardFilters(boardID), ch) {
		log.Debug().Str("table", string(ch.Table)).Str("event", string(ch.Type)).
			Msg("dropping notification for another board")
		return
	}

	if ch.Table == domain.TableActivities {
		r.activity(ch)
		return
	}

	err := r.apply(ch)
	switch {
	case errors.Is(err, errDeferred):
		return
	case errors.Is(err, domain.ErrReconciliationAnomaly):
		log.Debug().Err(err).Str("table", string(ch.Table)).Str("event", string(ch.Type)).Msg("reconciliation anomaly")
		return
	case err != nil:
		log.Warn().Err(err).Str("table", string(ch.Table)).Str("event", string(ch.Type)).Msg("malformed notification")
		return
	}

	r.observerMu.RLock()
	observers := r.onChange
	r.observerMu.RUnlock()
	for _, fn := range observers {
		fn(ch)
	}
}

func (r *Reconciler) activity(ch domain.Change) {
	if ch.Type != domain.EventInsert {
		return
	}
	var a domain.Activity
	if err := ch.Decode(&a); err != nil {
		log.Warn().Err(err).Msg("malformed activity notification")
		return
	}

	r.observerMu.RLock()
	observers := r.onActivity
	r.observerMu.RUnlock()
	for _, fn := range observers {
		fn(a)
	}
}

// deferUntilSettled parks an UPDATE for an entity with a mutation in flight.
// It is replayed once the coordinator confirms or rolls back.
func (r *Reconciler) deferUntilSettled(id domain.ID, ch domain.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred[id] = append(r.deferred[id], ch)
	return errDeferred
}

func (r *Reconciler) settled(id domain.ID) {
	r.mu.Lock()
	parked := r.deferred[id]
	delete(r.deferred, id)
	boardID := r.boardID
	r.mu.Unlock()

	if boardID.IsZero() {
		return
	}
	for _, ch := range parked {
		r.handle(boardID, ch)
	}
}

var errDeferred = errors.New("reconciler: deferred until settled")
