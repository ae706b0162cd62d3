package coordinator

import (
	"context"
	"slices"
	"sync"
)

// inflight serializes mutations per entity key. A mutation holding a key
// keeps later mutations of the same key waiting until it confirms or rolls
// back; different keys never wait on each other.
type inflight struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newInflight() *inflight {
	return &inflight{slots: make(map[string]*slot)}
}

// acquire takes every key, in sorted order so overlapping key sets cannot
// deadlock. It returns a release func, or the context error if ctx ends while
// waiting.
func (l *inflight) acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = slices.Compact(slices.Sorted(slices.Values(keys)))

	held := make([]*slot, 0, len(keys))
	heldKeys := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			l.unref(heldKeys[i])
		}
	}

	for _, k := range keys {
		s := l.ref(k)
		select {
		case s.ch <- struct{}{}:
			held = append(held, s)
			heldKeys = append(heldKeys, k)
		case <-ctx.Done():
			l.unref(k)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// busy reports whether some mutation currently holds key.
func (l *inflight) busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	return ok && len(s.ch) > 0
}

func (l *inflight) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *inflight) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
