package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Table string

const (
	TableBoards        Table = "boards"
	TableColumns       Table = "columns"
	TableCards         Table = "cards"
	TableCardLabels    Table = "card_labels"
	TableCardAssignees Table = "card_assignees"
	TableActivities    Table = "board_activities"
)

// Change is a single row notification from the change stream. New carries the
// row after INSERT/UPDATE, Old the row before UPDATE/DELETE.
type Change struct {
	Type  EventType       `json:"eventType"`
	Table Table           `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// NewChange encodes row into a notification. For DELETE the row goes to Old.
func NewChange(typ EventType, table Table, row any) (Change, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Change{}, fmt.Errorf("domain.NewChange: %w", err)
	}
	c := Change{Type: typ, Table: table}
	if typ == EventDelete {
		c.Old = raw
	} else {
		c.New = raw
	}
	return c, nil
}

// Row returns the payload describing the affected row.
func (c Change) Row() json.RawMessage {
	if c.Type == EventDelete || len(c.New) == 0 {
		return c.Old
	}
	return c.New
}

// Decode unmarshals the affected row into v.
func (c Change) Decode(v any) error {
	row := c.Row()
	if len(row) == 0 {
		return fmt.Errorf("domain.Change.Decode: %s %s without payload", c.Type, c.Table)
	}
	if err := json.Unmarshal(row, v); err != nil {
		return fmt.Errorf("domain.Change.Decode: %w", err)
	}
	return nil
}

// TableFilter selects notifications of one table whose Column equals Value.
// An empty Events list selects every event type.
type TableFilter struct {
	Table  Table       `json:"table"`
	Events []EventType `json:"events,omitempty"`
	Column string      `json:"column"`
	Value  string      `json:"value"`
}

// Match reports whether the change passes the filter.
func (f TableFilter) Match(c Change) bool {
	if c.Table != f.Table {
		return false
	}
	if len(f.Events) > 0 && !slices.Contains(f.Events, c.Type) {
		return false
	}
	if f.Column == "" {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(c.Row(), &row); err != nil {
		return false
	}
	v, ok := row[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// MatchAny reports whether any filter accepts the change. No filters accept everything.
func MatchAny(filters []TableFilter, c Change) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Match(c) {
			return true
		}
	}
	return false
}

// BoardScope names the change scope of one board.
func BoardScope(boardID ID) string {
	return "board:" + boardID.String()
}

// BoardFilters returns the table filters a board view subscribes to.
func BoardFilters(boardID ID) []TableFilter {
	id := boardID.String()
	return []TableFilter{
		{Table: TableBoards, Column: "id", Value: id},
		{Table: TableColumns, Column: "board_id", Value: id},
		{Table: TableCards, Column: "board_id", Value: id},
		{Table: TableCardLabels, Column: "board_id", Value: id},
		{Table: TableCardAssignees, Column: "board_id", Value: id},
		{Table: TableActivities, Events: []EventType{EventInsert}, Column: "board_id", Value: id},
	}
}

// ChangeStream delivers row notifications per scope with at-least-once,
// unordered semantics.
type ChangeStream interface {
	// Subscribe returns only after the channel acknowledged the subscription.
	Subscribe(ctx context.Context, scope string, filters []TableFilter) (Subscription, error)
}

type Subscription interface {
	// Events is closed when the subscription ends.
	Events() <-chan Change
	Close() error
}

// ChangePublisher emits notifications into a scope.
type ChangePublisher interface {
	PublishChange(ctx context.Context, scope string, c Change) error
}
