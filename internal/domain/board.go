package domain

import (
	"context"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// DefaultColumnTitles are created, in order, for every new board.
var DefaultColumnTitles = []string{"To Do", "In Progress", "Done"} //nolint:gochecknoglobals // fixed board template

type Board struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"user_id,omitempty"`
	Columns     []*Column `json:"columns,omitempty"`
	Labels      []Label   `json:"labels,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Column struct {
	ID       ID      `json:"id"`
	BoardID  ID      `json:"board_id"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Cards    []*Card `json:"cards,omitempty"`
}

type Card struct {
	ID          ID         `json:"id"`
	ColumnID    ID         `json:"column_id"`
	BoardID     ID         `json:"board_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Position    int        `json:"position"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`

	// Sub-collections are loaded independently and replaced wholesale.
	// A nil slice means "not loaded".
	Labels      []Label      `json:"labels,omitempty"`
	Assignees   []User       `json:"assignees,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Checklists  []Checklist  `json:"checklists,omitempty"`
}

type Label struct {
	ID      string `json:"id"`
	BoardID string `json:"board_id,omitempty"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

type Checklist struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items,omitempty"`
}

type ChecklistItem struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

// BoardPatch lists the fields of a board update. Nil fields are left alone.
type BoardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ColumnPatch struct {
	Title    *string `json:"title,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// CardPatch lists the fields of a card update. ColumnID and Position describe a
// re-parent or re-position and are applied through a move, not a field merge.
type CardPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ColumnID    *ID        `json:"column_id,omitempty"`
	Position    *int       `json:"position,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p CardPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.ColumnID == nil && p.Position == nil
}

// Fields returns a copy of p without the structural ColumnID/Position entries.
func (p CardPatch) Fields() CardPatch {
	p.ColumnID = nil
	p.Position = nil
	return p
}

// Apply merges the board fields set in p and reports whether anything changed.
func (b *Board) Apply(p BoardPatch) bool {
	changed := false
	if p.Title != nil && *p.Title != b.Title {
		b.Title = *p.Title
		changed = true
	}
	if p.Description != nil && !equalPtr(b.Description, p.Description) {
		b.Description = clonePtr(p.Description)
		changed = true
	}
	return changed
}

// Restore copies back from before the fields that p touched.
func (b *Board) Restore(before *Board, p BoardPatch) {
	if p.Title != nil {
		b.Title = before.Title
	}
	if p.Description != nil {
		b.Description = clonePtr(before.Description)
	}
}

// Apply merges the non-structural card fields set in p and reports whether
// anything changed.
func (c *Card) Apply(p CardPatch) bool {
	changed := false
	if p.Title != nil && *p.Title != c.Title {
		c.Title = *p.Title
		changed = true
	}
	if p.Description != nil && !equalPtr(c.Description, p.Description) {
		c.Description = clonePtr(p.Description)
		changed = true
	}
	if p.Priority != nil && !equalPtr(c.Priority, p.Priority) {
		c.Priority = clonePtr(p.Priority)
		changed = true
	}
	if p.DueDate != nil && (c.DueDate == nil || !c.DueDate.Equal(*p.DueDate)) {
		c.DueDate = clonePtr(p.DueDate)
		changed = true
	}
	return changed
}

// Restore copies back from before the non-structural fields that p touched.
// Fields another writer changed since are overwritten only if p touched them.
func (c *Card) Restore(before *Card, p CardPatch) {
	if p.Title != nil {
		c.Title = before.Title
	}
	if p.Description != nil {
		c.Description = clonePtr(before.Description)
	}
	if p.Priority != nil {
		c.Priority = clonePtr(before.Priority)
	}
	if p.DueDate != nil {
		c.DueDate = clonePtr(before.DueDate)
	}
}

// Clone copies the card fields. Sub-collections are shared by reference since
// they are only ever replaced wholesale.
func (c *Card) Clone() *Card {
	cp := *c
	return &cp
}

// Clone copies the column and its card list.
func (c *Column) Clone() *Column {
	cp := *c
	cp.Cards = make([]*Card, len(c.Cards))
	for i, card := range c.Cards {
		cp.Cards[i] = card.Clone()
	}
	return &cp
}

// Clone copies the board, its columns and their card lists.
func (b *Board) Clone() *Board {
	cp := *b
	cp.Columns = make([]*Column, len(b.Columns))
	for i, col := range b.Columns {
		cp.Columns[i] = col.Clone()
	}
	return &cp
}

// Summary returns the board without its column tree.
func (b *Board) Summary() Board {
	s := *b
	s.Columns = nil
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type BoardRepository interface {
	List(ctx context.Context) ([]*Board, error)
	GetByID(ctx context.Context, id ID) (*Board, error)
	Create(ctx context.Context, b *Board) (*Board, error)
	Update(ctx context.Context, id ID, p BoardPatch) error
	Delete(ctx context.Context, id ID) error
}

type ColumnRepository interface {
	ListByBoard(ctx context.Context, boardID ID) ([]*Column, error)
	GetByID(ctx context.Context, id ID) (*Column, error)
	// MaxPosition returns the highest position in the board, or ok=false when
	// the board has no columns.
	MaxPosition(ctx context.Context, boardID ID) (pos int, ok bool, err error)
	Create(ctx context.Context, c *Column) (*Column, error)
	Update(ctx context.Context, id ID, p ColumnPatch) error
	Delete(ctx context.Context, id ID) error
}

type CardRepository interface {
	ListByBoard(ctx context.Context, boardID ID) ([]*Card, error)
	GetByID(ctx context.Context, id ID) (*Card, error)
	MaxPosition(ctx context.Context, columnID ID) (pos int, ok bool, err error)
	Create(ctx context.Context, c *Card) (*Card, error)
	Update(ctx context.Context, id ID, p CardPatch) error
	// Move re-parents the card and renumbers both affected columns.
	Move(ctx context.Context, id, toColumnID ID, toIndex int) error
	Delete(ctx context.Context, id ID) error
}

type CardLabelRepository interface {
	ListByBoard(ctx context.Context, boardID ID) ([]Label, error)
	ListAssignments(ctx context.Context, boardID ID) ([]CardLabel, error)
	Add(ctx context.Context, cardID ID, labelID string) error
	Remove(ctx context.Context, cardID ID, labelID string) error
}

type CardAssigneeRepository interface {
	ListAssignments(ctx context.Context, boardID ID) ([]CardAssignee, error)
	Add(ctx context.Context, cardID ID, userID string) error
	Remove(ctx context.Context, cardID ID, userID string) error
}

// RemoteStore is the remote entity store as seen by the sync engine.
type RemoteStore interface {
	Boards() BoardRepository
	Columns() ColumnRepository
	Cards() CardRepository
	CardLabels() CardLabelRepository
	CardAssignees() CardAssigneeRepository
	Activities() ActivityRepository
}

// CardLabel is a row of the card_labels join.
type CardLabel struct {
	CardID  ID     `json:"card_id"`
	LabelID string `json:"label_id"`
	BoardID ID     `json:"board_id"`
}

// CardAssignee is a row of the card_assignees join.
type CardAssignee struct {
	CardID  ID     `json:"card_id"`
	UserID  string `json:"user_id"`
	BoardID ID     `json:"board_id"`
}
