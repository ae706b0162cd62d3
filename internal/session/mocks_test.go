package session_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gosuda/boardsync/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory RemoteStore
// ---------------------------------------------------------------------------

type memStore struct {
	mu         sync.Mutex
	seq        int
	boards     map[domain.ID]*domain.Board
	columns    map[domain.ID]*domain.Column
	cards      map[domain.ID]*domain.Card
	labels     []domain.Label
	cardLabels []domain.CardLabel
	activities []*domain.Activity

	// Hooks override single operations when set.
	getBoardFunc   func(ctx context.Context, id domain.ID) (*domain.Board, error)
	updateCardFunc func(ctx context.Context, id domain.ID, p domain.CardPatch) error
}

func newMemStore() *memStore {
	return &memStore{
		boards:  map[domain.ID]*domain.Board{},
		columns: map[domain.ID]*domain.Column{},
		cards:   map[domain.ID]*domain.Card{},
	}
}

func (m *memStore) nextID(prefix string) domain.ID {
	m.seq++
	return domain.ConfirmedID(fmt.Sprintf("%s-%d", prefix, m.seq))
}

func (m *memStore) Boards() domain.BoardRepository               { return memBoards{m} }
func (m *memStore) Columns() domain.ColumnRepository             { return memColumns{m} }
func (m *memStore) Cards() domain.CardRepository                 { return memCards{m} }
func (m *memStore) CardLabels() domain.CardLabelRepository       { return memCardLabels{m} }
func (m *memStore) CardAssignees() domain.CardAssigneeRepository { return memAssignees{m} }
func (m *memStore) Activities() domain.ActivityRepository        { return memActivities{m} }

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.activities))
	for i, a := range m.activities {
		out[i] = a.Action
	}
	return out
}

type memBoards struct{ m *memStore }

func (r memBoards) List(context.Context) ([]*domain.Board, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*domain.Board, 0, len(r.m.boards))
	for _, b := range r.m.boards {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() > out[j].ID.String() })
	return out, nil
}

func (r memBoards) GetByID(ctx context.Context, id domain.ID) (*domain.Board, error) {
	if r.m.getBoardFunc != nil {
		return r.m.getBoardFunc(ctx, id)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.boards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r memBoards) Create(_ context.Context, b *domain.Board) (*domain.Board, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *b
	cp.ID = r.m.nextID("board")
	r.m.boards[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memBoards) Update(_ context.Context, id domain.ID, p domain.BoardPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.boards[id]
	if !ok {
		return domain.Rejected(domain.ErrNotFound)
	}
	b.Apply(p)
	return nil
}

func (r memBoards) Delete(_ context.Context, id domain.ID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.boards, id)
	return nil
}

type memColumns struct{ m *memStore }

func (r memColumns) ListByBoard(_ context.Context, boardID domain.ID) ([]*domain.Column, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Column
	for _, c := range r.m.columns {
		if c.BoardID == boardID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r memColumns) GetByID(_ context.Context, id domain.ID) (*domain.Column, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.columns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memColumns) MaxPosition(_ context.Context, boardID domain.ID) (int, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	last, ok := 0, false
	for _, c := range r.m.columns {
		if c.BoardID == boardID && (!ok || c.Position > last) {
			last, ok = c.Position, true
		}
	}
	return last, ok, nil
}

func (r memColumns) Create(_ context.Context, c *domain.Column) (*domain.Column, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *c
	cp.ID = r.m.nextID("col")
	cp.Cards = nil
	r.m.columns[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memColumns) Update(_ context.Context, id domain.ID, p domain.ColumnPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.columns[id]
	if !ok {
		return domain.Rejected(domain.ErrNotFound)
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	return nil
}

func (r memColumns) Delete(_ context.Context, id domain.ID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.columns, id)
	return nil
}

type memCards struct{ m *memStore }

func (r memCards) ListByBoard(_ context.Context, boardID domain.ID) ([]*domain.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Card
	for _, c := range r.m.cards {
		if c.BoardID == boardID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memCards) GetByID(_ context.Context, id domain.ID) (*domain.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memCards) MaxPosition(_ context.Context, columnID domain.ID) (int, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	last, ok := 0, false
	for _, c := range r.m.cards {
		if c.ColumnID == columnID && (!ok || c.Position > last) {
			last, ok = c.Position, true
		}
	}
	return last, ok, nil
}

func (r memCards) Create(_ context.Context, c *domain.Card) (*domain.Card, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *c
	cp.ID = r.m.nextID("card")
	cp.Labels, cp.Assignees = nil, nil
	r.m.cards[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memCards) Update(ctx context.Context, id domain.ID, p domain.CardPatch) error {
	if r.m.updateCardFunc != nil {
		return r.m.updateCardFunc(ctx, id, p)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return domain.Rejected(domain.ErrNotFound)
	}
	c.Apply(p)
	return nil
}

func (r memCards) Move(_ context.Context, id, toColumnID domain.ID, toIndex int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return domain.Rejected(domain.ErrNotFound)
	}
	c.ColumnID, c.Position = toColumnID, toIndex
	return nil
}

func (r memCards) Delete(_ context.Context, id domain.ID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.cards, id)
	return nil
}

type memCardLabels struct{ m *memStore }

func (r memCardLabels) ListByBoard(context.Context, domain.ID) ([]domain.Label, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]domain.Label(nil), r.m.labels...), nil
}

func (r memCardLabels) ListAssignments(context.Context, domain.ID) ([]domain.CardLabel, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]domain.CardLabel(nil), r.m.cardLabels...), nil
}

func (r memCardLabels) Add(_ context.Context, cardID domain.ID, labelID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.cardLabels = append(r.m.cardLabels, domain.CardLabel{CardID: cardID, LabelID: labelID})
	return nil
}

func (r memCardLabels) Remove(context.Context, domain.ID, string) error { return nil }

type memAssignees struct{ m *memStore }

func (r memAssignees) ListAssignments(context.Context, domain.ID) ([]domain.CardAssignee, error) {
	return nil, nil
}

func (r memAssignees) Add(context.Context, domain.ID, string) error    { return nil }
func (r memAssignees) Remove(context.Context, domain.ID, string) error { return nil }

type memActivities struct{ m *memStore }

func (r memActivities) Create(_ context.Context, a *domain.Activity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.activities = append(r.m.activities, a)
	return nil
}

func (r memActivities) ListByBoard(_ context.Context, boardID domain.ID, limit int) ([]*domain.Activity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Activity
	for i := len(r.m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if r.m.activities[i].BoardID == boardID {
			out = append(out, r.m.activities[i])
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Mock ChangeStream
// ---------------------------------------------------------------------------

type mockStream struct {
	mu   sync.Mutex
	subs []*mockSubscription
}

func (m *mockStream) Subscribe(context.Context, string, []domain.TableFilter) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &mockSubscription{events: make(chan domain.Change, 8)}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *mockStream) last() *mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.subs) == 0 {
		return nil
	}
	return m.subs[len(m.subs)-1]
}

type mockSubscription struct {
	events chan domain.Change
	mu     sync.Mutex
	closed bool
}

func (s *mockSubscription) Events() <-chan domain.Change { return s.events }

func (s *mockSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mockSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
