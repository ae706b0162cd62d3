package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/domain"
)

// PubSub carries row notifications over Redis channels, one channel per scope.
// It implements both domain.ChangeStream and domain.ChangePublisher.
type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// PublishChange encodes c as JSON and publishes it into scope.
func (ps *PubSub) PublishChange(ctx context.Context, scope string, c domain.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishChange: marshal: %w", err)
	}
	if err := ps.client.Publish(ctx, Channel(scope), payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.PublishChange: %w", err)
	}
	return nil
}

// Subscribe joins the scope channel and returns once Redis confirmed the
// subscription. Messages that fail to decode or match no filter are dropped.
func (ps *PubSub) Subscribe(ctx context.Context, scope string, filters []domain.TableFilter) (domain.Subscription, error) {
	sub := ps.client.Subscribe(ctx, Channel(scope))

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	s := &subscription{
		sub:  sub,
		out:  make(chan domain.Change, 64),
		done: make(chan struct{}),
	}
	go s.pump(scope, filters)

	return s, nil
}

type subscription struct {
	sub  *redis.PubSub
	out  chan domain.Change
	done chan struct{}
	once sync.Once
}

func (s *subscription) Events() <-chan domain.Change { return s.out }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Close()
	})
	if err != nil {
		return fmt.Errorf("redis.subscription.Close: %w", err)
	}
	return nil
}

func (s *subscription) pump(scope string, filters []domain.TableFilter) {
	defer close(s.out)

	redisCh := s.sub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-redisCh:
			if !ok {
				return
			}
			var c domain.Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("dropping malformed change notification")
				continue
			}
			if !domain.MatchAny(filters, c) {
				continue
			}
			select {
			case s.out <- c:
			case <-s.done:
				return
			}
		}
	}
}

// Channel returns the Redis channel name for a change scope.
func Channel(scope string) string {
	return "changes:" + scope
}
