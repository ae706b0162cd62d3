package domain

import (
	"context"
	"time"
)

const (
	ActionBoardCreated = "board_created"
	ActionBoardUpdated = "board_updated"
	ActionCardCreated  = "card_created"
	ActionCardMoved    = "card_moved"
	ActionCardDeleted  = "card_deleted"
)

type Activity struct {
	ID         string         `json:"id"`
	BoardID    ID             `json:"board_id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	ListByBoard(ctx context.Context, boardID ID, limit int) ([]*Activity, error)
}
