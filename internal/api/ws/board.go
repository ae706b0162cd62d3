package ws

import "github.com/gosuda/boardsync/internal/domain"

const (
	FrameSubscribed = "subscribed"
	FrameChange     = "change"
)

// Frame is one websocket message of the board relay. The first frame of every
// connection is {"type":"subscribed"}, sent once the upstream subscription is
// acknowledged.
type Frame struct {
	Type   string         `json:"type"`
	Change *domain.Change `json:"change,omitempty"`
}
