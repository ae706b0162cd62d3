package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/domain"
)

// Hub relays board change notifications from a domain.ChangeStream to
// websocket clients.
type Hub struct {
	stream domain.ChangeStream
	opts   *websocket.AcceptOptions
}

// NewHub creates a new WebSocket hub. originPatterns is passed to
// websocket.Accept; empty means same-origin only.
func NewHub(stream domain.ChangeStream, originPatterns []string) *Hub {
	return &Hub{
		stream: stream,
		opts:   &websocket.AcceptOptions{OriginPatterns: originPatterns},
	}
}

// ServeBoard handles WebSocket connections for one board's change feed.
// Subscribes to the board scope and forwards each matching change as a frame.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	boardID := domain.ConfirmedID(chi.URLParam(r, "boardID"))
	if boardID.IsZero() {
		http.Error(w, "missing board id", http.StatusBadRequest)
		return
	}

	// Relay connections outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	sub, err := h.stream.Subscribe(ctx, domain.BoardScope(boardID), domain.BoardFilters(boardID))
	if err != nil {
		log.Error().Err(err).Str("board_id", boardID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Close()

	if err := writeFrame(ctx, conn, Frame{Type: FrameSubscribed}); err != nil {
		log.Debug().Err(err).Msg("websocket write")
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case c, ok := <-sub.Events():
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if err := writeFrame(ctx, conn, Frame{Type: FrameChange, Change: &c}); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
