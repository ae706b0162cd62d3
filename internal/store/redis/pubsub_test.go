package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/boardsync/internal/domain"
	redisstore "github.com/gosuda/boardsync/internal/store/redis"
)

func newPubSub(t *testing.T) (*redisstore.PubSub, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	ps, err := redisstore.New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps, mr
}

func change(t *testing.T, typ domain.EventType, table domain.Table, row any) domain.Change {
	t.Helper()

	c, err := domain.NewChange(typ, table, row)
	require.NoError(t, err)
	return c
}

func receive(t *testing.T, sub domain.Subscription) domain.Change {
	t.Helper()

	select {
	case c, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return domain.Change{}
	}
}

func TestChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scope string
		want  string
	}{
		{scope: "board:b1", want: "changes:board:b1"},
		{scope: "", want: "changes:"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, redisstore.Channel(tt.scope))
		})
	}
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := redisstore.New(ctx, "127.0.0.1:1", "", 0)
	assert.ErrorContains(t, err, "redis.New: ping")
}

func TestSubscribe_ReceivesPublishedChange(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx := context.Background()
	scope := domain.BoardScope(domain.ConfirmedID("b1"))

	sub, err := ps.Subscribe(ctx, scope, domain.BoardFilters(domain.ConfirmedID("b1")))
	require.NoError(t, err)
	defer sub.Close()

	card := domain.Card{ID: domain.ConfirmedID("c1"), BoardID: domain.ConfirmedID("b1"), ColumnID: domain.ConfirmedID("col"), Title: "A"}
	require.NoError(t, ps.PublishChange(ctx, scope, change(t, domain.EventInsert, domain.TableCards, card)))

	got := receive(t, sub)
	assert.Equal(t, domain.EventInsert, got.Type)
	assert.Equal(t, domain.TableCards, got.Table)

	var decoded domain.Card
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, "c1", decoded.ID.String())
	assert.True(t, decoded.ID.IsConfirmed())
}

func TestSubscribe_FiltersOtherBoards(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	ctx := context.Background()
	scope := domain.BoardScope(domain.ConfirmedID("b1"))

	sub, err := ps.Subscribe(ctx, scope, domain.BoardFilters(domain.ConfirmedID("b1")))
	require.NoError(t, err)
	defer sub.Close()

	stray := domain.Column{ID: domain.ConfirmedID("x"), BoardID: domain.ConfirmedID("b2"), Title: "Other"}
	require.NoError(t, ps.PublishChange(ctx, scope, change(t, domain.EventInsert, domain.TableColumns, stray)))
	own := domain.Column{ID: domain.ConfirmedID("y"), BoardID: domain.ConfirmedID("b1"), Title: "Mine"}
	require.NoError(t, ps.PublishChange(ctx, scope, change(t, domain.EventInsert, domain.TableColumns, own)))

	got := receive(t, sub)
	var col domain.Column
	require.NoError(t, got.Decode(&col))
	assert.Equal(t, "y", col.ID.String())
}

func TestSubscribe_DropsMalformedPayload(t *testing.T) {
	t.Parallel()

	ps, mr := newPubSub(t)
	ctx := context.Background()
	scope := "board:b1"

	sub, err := ps.Subscribe(ctx, scope, nil)
	require.NoError(t, err)
	defer sub.Close()

	mr.Publish(redisstore.Channel(scope), "{not json")
	require.NoError(t, ps.PublishChange(ctx, scope, domain.Change{
		Type: domain.EventDelete, Table: domain.TableBoards, Old: json.RawMessage(`{"id":"b1"}`),
	}))

	got := receive(t, sub)
	assert.Equal(t, domain.EventDelete, got.Type)
}

func TestSubscription_CloseEndsEvents(t *testing.T) {
	t.Parallel()

	ps, _ := newPubSub(t)
	sub, err := ps.Subscribe(context.Background(), "board:b1", nil)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestSubscribe_ServerGone(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	ps := redisstore.NewWithClient(client)
	t.Cleanup(func() { _ = ps.Close() })
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := ps.Subscribe(ctx, "board:b1", nil)
	assert.ErrorContains(t, err, "receive confirmation")
}
