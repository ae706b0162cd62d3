package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/domain"
)

// Client is a domain.ChangeStream that dials a board relay served by Hub.
type Client struct {
	baseURL string
}

// NewClient returns a client for the relay at baseURL, e.g. "ws://host:8080".
func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

// Subscribe dials the relay for the board named by scope and returns once the
// relay sent its subscribed frame.
func (c *Client) Subscribe(ctx context.Context, scope string, filters []domain.TableFilter) (domain.Subscription, error) {
	boardID, ok := strings.CutPrefix(scope, "board:")
	if !ok || boardID == "" {
		return nil, fmt.Errorf("ws.Client.Subscribe: unsupported scope %q", scope)
	}

	conn, _, err := websocket.Dial(ctx, c.baseURL+"/ws/board/"+url.PathEscape(boardID), nil)
	if err != nil {
		return nil, fmt.Errorf("ws.Client.Subscribe: dial: %w", err)
	}

	first, err := readFrame(ctx, conn)
	if err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("ws.Client.Subscribe: receive confirmation: %w", err)
	}
	if first.Type != FrameSubscribed {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("ws.Client.Subscribe: unexpected first frame %q", first.Type)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &clientSubscription{
		conn:   conn,
		out:    make(chan domain.Change, 64),
		cancel: cancel,
	}
	go s.pump(readCtx, scope, filters)

	return s, nil
}

type clientSubscription struct {
	conn   *websocket.Conn
	out    chan domain.Change
	cancel context.CancelFunc
	once   sync.Once
}

func (s *clientSubscription) Events() <-chan domain.Change { return s.out }

func (s *clientSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
		s.cancel()
	})
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("ws.clientSubscription.Close: %w", err)
	}
	return nil
}

func (s *clientSubscription) pump(ctx context.Context, scope string, filters []domain.TableFilter) {
	defer close(s.out)
	defer s.conn.CloseNow()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Debug().Err(err).Str("scope", scope).Msg("websocket read")
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("dropping malformed frame")
			continue
		}
		if f.Type != FrameChange || f.Change == nil {
			continue
		}
		if !domain.MatchAny(filters, *f.Change) {
			continue
		}
		select {
		case s.out <- *f.Change:
		case <-ctx.Done():
			return
		}
	}
}

func readFrame(ctx context.Context, conn *websocket.Conn) (Frame, error) {
	var f Frame
	_, data, err := conn.Read(ctx)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
