package ws_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/boardsync/internal/api/ws"
	"github.com/gosuda/boardsync/internal/domain"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockSubscription struct {
	events chan domain.Change
	once   sync.Once
}

func (m *mockSubscription) Events() <-chan domain.Change { return m.events }

func (m *mockSubscription) Close() error {
	m.once.Do(func() { close(m.events) })
	return nil
}

type mockStream struct {
	mu            sync.Mutex
	subscribeFunc func(ctx context.Context, scope string, filters []domain.TableFilter) (domain.Subscription, error)
	scopes        []string
}

func (m *mockStream) Subscribe(ctx context.Context, scope string, filters []domain.TableFilter) (domain.Subscription, error) {
	m.mu.Lock()
	m.scopes = append(m.scopes, scope)
	m.mu.Unlock()
	return m.subscribeFunc(ctx, scope, filters)
}

func newRelay(t *testing.T, stream domain.ChangeStream) *ws.Client {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/ws/board/{boardID}", ws.NewHub(stream, nil).ServeBoard)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return ws.NewClient("ws" + strings.TrimPrefix(srv.URL, "http"))
}

func change(t *testing.T, typ domain.EventType, table domain.Table, row any) domain.Change {
	t.Helper()

	c, err := domain.NewChange(typ, table, row)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRelay_ForwardsBoardChanges(t *testing.T) {
	t.Parallel()

	upstream := &mockSubscription{events: make(chan domain.Change, 4)}
	stream := &mockStream{subscribeFunc: func(context.Context, string, []domain.TableFilter) (domain.Subscription, error) {
		return upstream, nil
	}}
	client := newRelay(t, stream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	boardID := domain.ConfirmedID("b1")
	sub, err := client.Subscribe(ctx, domain.BoardScope(boardID), domain.BoardFilters(boardID))
	require.NoError(t, err)
	defer sub.Close()

	stream.mu.Lock()
	assert.Equal(t, []string{"board:b1"}, stream.scopes)
	stream.mu.Unlock()

	upstream.events <- change(t, domain.EventInsert, domain.TableColumns, domain.Column{ID: domain.ConfirmedID("x"), BoardID: domain.ConfirmedID("other")})
	upstream.events <- change(t, domain.EventInsert, domain.TableColumns, domain.Column{ID: domain.ConfirmedID("y"), BoardID: boardID, Title: "Mine"})

	select {
	case got := <-sub.Events():
		var col domain.Column
		require.NoError(t, got.Decode(&col))
		assert.Equal(t, "y", col.ID.String())
	case <-ctx.Done():
		t.Fatal("timed out waiting for change")
	}
}

func TestRelay_UpstreamFailure(t *testing.T) {
	t.Parallel()

	stream := &mockStream{subscribeFunc: func(context.Context, string, []domain.TableFilter) (domain.Subscription, error) {
		return nil, errors.New("redis down")
	}}
	client := newRelay(t, stream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Subscribe(ctx, "board:b1", nil)
	assert.ErrorContains(t, err, "receive confirmation")
}

func TestRelay_UpstreamClosedEndsEvents(t *testing.T) {
	t.Parallel()

	upstream := &mockSubscription{events: make(chan domain.Change)}
	stream := &mockStream{subscribeFunc: func(context.Context, string, []domain.TableFilter) (domain.Subscription, error) {
		return upstream, nil
	}}
	client := newRelay(t, stream)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, "board:b1", nil)
	require.NoError(t, err)
	defer sub.Close()

	_ = upstream.Close()

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-ctx.Done():
		t.Fatal("events channel not closed")
	}
}

func TestClient_RejectsUnknownScope(t *testing.T) {
	t.Parallel()

	tests := []string{"", "board:", "project:p1"}
	for _, scope := range tests {
		t.Run(scope, func(t *testing.T) {
			t.Parallel()

			_, err := ws.NewClient("ws://127.0.0.1:1").Subscribe(context.Background(), scope, nil)
			assert.ErrorContains(t, err, "unsupported scope")
		})
	}
}
