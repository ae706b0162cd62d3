package coordinator_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosuda/boardsync/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock RemoteStore
// ---------------------------------------------------------------------------

type mockStore struct {
	boards     *mockBoardRepo
	columns    *mockColumnRepo
	cards      *mockCardRepo
	labels     *mockCardLabelRepo
	assignees  *mockCardAssigneeRepo
	activities *mockActivityRepo
}

func (m *mockStore) Boards() domain.BoardRepository               { return m.boards }
func (m *mockStore) Columns() domain.ColumnRepository             { return m.columns }
func (m *mockStore) Cards() domain.CardRepository                 { return m.cards }
func (m *mockStore) CardLabels() domain.CardLabelRepository       { return m.labels }
func (m *mockStore) CardAssignees() domain.CardAssigneeRepository { return m.assignees }
func (m *mockStore) Activities() domain.ActivityRepository        { return m.activities }

// newMockStore returns a store whose writes succeed. Created rows get
// sequential IDs and positions are tracked per parent so MaxPosition answers
// like the real store would.
func newMockStore() *mockStore {
	var (
		mu      sync.Mutex
		seq     int
		maxCard = map[domain.ID]int{}
		maxCol  = map[domain.ID]int{}
	)
	nextID := func(prefix string) domain.ID {
		seq++
		return domain.ConfirmedID(fmt.Sprintf("%s-%d", prefix, seq))
	}
	ok := func(context.Context, domain.ID) error { return nil }

	return &mockStore{
		boards: &mockBoardRepo{
			createFunc: func(_ context.Context, b *domain.Board) (*domain.Board, error) {
				mu.Lock()
				defer mu.Unlock()
				cp := *b
				cp.ID = nextID("board")
				return &cp, nil
			},
			updateFunc: func(context.Context, domain.ID, domain.BoardPatch) error { return nil },
			deleteFunc: ok,
		},
		columns: &mockColumnRepo{
			maxPositionFunc: func(_ context.Context, boardID domain.ID) (int, bool, error) {
				mu.Lock()
				defer mu.Unlock()
				pos, found := maxCol[boardID]
				return pos, found, nil
			},
			createFunc: func(_ context.Context, c *domain.Column) (*domain.Column, error) {
				mu.Lock()
				defer mu.Unlock()
				cp := *c
				cp.ID = nextID("col")
				if cur, found := maxCol[c.BoardID]; !found || c.Position > cur {
					maxCol[c.BoardID] = c.Position
				}
				return &cp, nil
			},
			updateFunc: func(context.Context, domain.ID, domain.ColumnPatch) error { return nil },
			deleteFunc: ok,
		},
		cards: &mockCardRepo{
			maxPositionFunc: func(_ context.Context, columnID domain.ID) (int, bool, error) {
				mu.Lock()
				defer mu.Unlock()
				pos, found := maxCard[columnID]
				return pos, found, nil
			},
			createFunc: func(_ context.Context, c *domain.Card) (*domain.Card, error) {
				mu.Lock()
				defer mu.Unlock()
				cp := *c
				cp.ID = nextID("card")
				if cur, found := maxCard[c.ColumnID]; !found || c.Position > cur {
					maxCard[c.ColumnID] = c.Position
				}
				return &cp, nil
			},
			updateFunc: func(context.Context, domain.ID, domain.CardPatch) error { return nil },
			moveFunc:   func(context.Context, domain.ID, domain.ID, int) error { return nil },
			deleteFunc: ok,
		},
		labels: &mockCardLabelRepo{
			addFunc:    func(context.Context, domain.ID, string) error { return nil },
			removeFunc: func(context.Context, domain.ID, string) error { return nil },
		},
		assignees: &mockCardAssigneeRepo{
			addFunc:    func(context.Context, domain.ID, string) error { return nil },
			removeFunc: func(context.Context, domain.ID, string) error { return nil },
		},
		activities: &mockActivityRepo{},
	}
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc func(ctx context.Context, b *domain.Board) (*domain.Board, error)
	updateFunc func(ctx context.Context, id domain.ID, p domain.BoardPatch) error
	deleteFunc func(ctx context.Context, id domain.ID) error
}

func (m *mockBoardRepo) List(context.Context) ([]*domain.Board, error) { return nil, nil }

func (m *mockBoardRepo) GetByID(context.Context, domain.ID) (*domain.Board, error) {
	return nil, domain.ErrNotFound
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) (*domain.Board, error) {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) Update(ctx context.Context, id domain.ID, p domain.BoardPatch) error {
	return m.updateFunc(ctx, id, p)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id domain.ID) error {
	return m.deleteFunc(ctx, id)
}

type mockColumnRepo struct {
	maxPositionFunc func(ctx context.Context, boardID domain.ID) (int, bool, error)
	createFunc      func(ctx context.Context, c *domain.Column) (*domain.Column, error)
	updateFunc      func(ctx context.Context, id domain.ID, p domain.ColumnPatch) error
	deleteFunc      func(ctx context.Context, id domain.ID) error
}

func (m *mockColumnRepo) ListByBoard(context.Context, domain.ID) ([]*domain.Column, error) {
	return nil, nil
}

func (m *mockColumnRepo) GetByID(context.Context, domain.ID) (*domain.Column, error) {
	return nil, domain.ErrNotFound
}

func (m *mockColumnRepo) MaxPosition(ctx context.Context, boardID domain.ID) (int, bool, error) {
	return m.maxPositionFunc(ctx, boardID)
}

func (m *mockColumnRepo) Create(ctx context.Context, c *domain.Column) (*domain.Column, error) {
	return m.createFunc(ctx, c)
}

func (m *mockColumnRepo) Update(ctx context.Context, id domain.ID, p domain.ColumnPatch) error {
	return m.updateFunc(ctx, id, p)
}

func (m *mockColumnRepo) Delete(ctx context.Context, id domain.ID) error {
	return m.deleteFunc(ctx, id)
}

type mockCardRepo struct {
	maxPositionFunc func(ctx context.Context, columnID domain.ID) (int, bool, error)
	createFunc      func(ctx context.Context, c *domain.Card) (*domain.Card, error)
	updateFunc      func(ctx context.Context, id domain.ID, p domain.CardPatch) error
	moveFunc        func(ctx context.Context, id, toColumnID domain.ID, toIndex int) error
	deleteFunc      func(ctx context.Context, id domain.ID) error
}

func (m *mockCardRepo) ListByBoard(context.Context, domain.ID) ([]*domain.Card, error) {
	return nil, nil
}

func (m *mockCardRepo) GetByID(context.Context, domain.ID) (*domain.Card, error) {
	return nil, domain.ErrNotFound
}

func (m *mockCardRepo) MaxPosition(ctx context.Context, columnID domain.ID) (int, bool, error) {
	return m.maxPositionFunc(ctx, columnID)
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Card) (*domain.Card, error) {
	return m.createFunc(ctx, c)
}

func (m *mockCardRepo) Update(ctx context.Context, id domain.ID, p domain.CardPatch) error {
	return m.updateFunc(ctx, id, p)
}

func (m *mockCardRepo) Move(ctx context.Context, id, toColumnID domain.ID, toIndex int) error {
	return m.moveFunc(ctx, id, toColumnID, toIndex)
}

func (m *mockCardRepo) Delete(ctx context.Context, id domain.ID) error {
	return m.deleteFunc(ctx, id)
}

type mockCardLabelRepo struct {
	addFunc    func(ctx context.Context, cardID domain.ID, labelID string) error
	removeFunc func(ctx context.Context, cardID domain.ID, labelID string) error
}

func (m *mockCardLabelRepo) ListByBoard(context.Context, domain.ID) ([]domain.Label, error) {
	return nil, nil
}

func (m *mockCardLabelRepo) ListAssignments(context.Context, domain.ID) ([]domain.CardLabel, error) {
	return nil, nil
}

func (m *mockCardLabelRepo) Add(ctx context.Context, cardID domain.ID, labelID string) error {
	return m.addFunc(ctx, cardID, labelID)
}

func (m *mockCardLabelRepo) Remove(ctx context.Context, cardID domain.ID, labelID string) error {
	return m.removeFunc(ctx, cardID, labelID)
}

type mockCardAssigneeRepo struct {
	addFunc    func(ctx context.Context, cardID domain.ID, userID string) error
	removeFunc func(ctx context.Context, cardID domain.ID, userID string) error
}

func (m *mockCardAssigneeRepo) ListAssignments(context.Context, domain.ID) ([]domain.CardAssignee, error) {
	return nil, nil
}

func (m *mockCardAssigneeRepo) Add(ctx context.Context, cardID domain.ID, userID string) error {
	return m.addFunc(ctx, cardID, userID)
}

func (m *mockCardAssigneeRepo) Remove(ctx context.Context, cardID domain.ID, userID string) error {
	return m.removeFunc(ctx, cardID, userID)
}

type mockActivityRepo struct {
	mu       sync.Mutex
	recorded []*domain.Activity
	err      error
}

func (m *mockActivityRepo) Create(_ context.Context, a *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, a)
	return nil
}

func (m *mockActivityRepo) ListByBoard(context.Context, domain.ID, int) ([]*domain.Activity, error) {
	return nil, nil
}

func (m *mockActivityRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.recorded))
	for i, a := range m.recorded {
		out[i] = a.Action
	}
	return out
}
