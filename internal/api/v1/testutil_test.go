package v1_test

import (
	"context"

	"github.com/gosuda/boardsync/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	boards        *mockBoardRepo
	columns       *mockColumnRepo
	cards         *mockCardRepo
	cardLabels    *mockCardLabelRepo
	cardAssignees *mockCardAssigneeRepo
	activities    *mockActivityRepo
}

func (m *mockDataStore) Boards() domain.BoardRepository               { return m.boards }
func (m *mockDataStore) Columns() domain.ColumnRepository             { return m.columns }
func (m *mockDataStore) Cards() domain.CardRepository                 { return m.cards }
func (m *mockDataStore) CardLabels() domain.CardLabelRepository       { return m.cardLabels }
func (m *mockDataStore) CardAssignees() domain.CardAssigneeRepository { return m.cardAssignees }
func (m *mockDataStore) Activities() domain.ActivityRepository        { return m.activities }

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	listFunc    func(ctx context.Context) ([]*domain.Board, error)
	getByIDFunc func(ctx context.Context, id domain.ID) (*domain.Board, error)
	createFunc  func(ctx context.Context, b *domain.Board) (*domain.Board, error)
	updateFunc  func(ctx context.Context, id domain.ID, p domain.BoardPatch) error
	deleteFunc  func(ctx context.Context, id domain.ID) error
}

func (m *mockBoardRepo) List(ctx context.Context) ([]*domain.Board, error) {
	return m.listFunc(ctx)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
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

// ---------------------------------------------------------------------------
// Mock ColumnRepository
// ---------------------------------------------------------------------------

type mockColumnRepo struct {
	listByBoardFunc func(ctx context.Context, boardID domain.ID) ([]*domain.Column, error)
	getByIDFunc     func(ctx context.Context, id domain.ID) (*domain.Column, error)
	maxPositionFunc func(ctx context.Context, boardID domain.ID) (int, bool, error)
	createFunc      func(ctx context.Context, c *domain.Column) (*domain.Column, error)
	updateFunc      func(ctx context.Context, id domain.ID, p domain.ColumnPatch) error
	deleteFunc      func(ctx context.Context, id domain.ID) error
}

func (m *mockColumnRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]*domain.Column, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockColumnRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Column, error) {
	return m.getByIDFunc(ctx, id)
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

// ---------------------------------------------------------------------------
// Mock CardRepository
// ---------------------------------------------------------------------------

type mockCardRepo struct {
	listByBoardFunc func(ctx context.Context, boardID domain.ID) ([]*domain.Card, error)
	getByIDFunc     func(ctx context.Context, id domain.ID) (*domain.Card, error)
	maxPositionFunc func(ctx context.Context, columnID domain.ID) (int, bool, error)
	createFunc      func(ctx context.Context, c *domain.Card) (*domain.Card, error)
	updateFunc      func(ctx context.Context, id domain.ID, p domain.CardPatch) error
	moveFunc        func(ctx context.Context, id, toColumnID domain.ID, toIndex int) error
	deleteFunc      func(ctx context.Context, id domain.ID) error
}

func (m *mockCardRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]*domain.Card, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockCardRepo) GetByID(ctx context.Context, id domain.ID) (*domain.Card, error) {
	return m.getByIDFunc(ctx, id)
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

// ---------------------------------------------------------------------------
// Mock CardLabelRepository / CardAssigneeRepository / ActivityRepository
// ---------------------------------------------------------------------------

type mockCardLabelRepo struct {
	listByBoardFunc     func(ctx context.Context, boardID domain.ID) ([]domain.Label, error)
	listAssignmentsFunc func(ctx context.Context, boardID domain.ID) ([]domain.CardLabel, error)
}

func (m *mockCardLabelRepo) ListByBoard(ctx context.Context, boardID domain.ID) ([]domain.Label, error) {
	return m.listByBoardFunc(ctx, boardID)
}

func (m *mockCardLabelRepo) ListAssignments(ctx context.Context, boardID domain.ID) ([]domain.CardLabel, error) {
	return m.listAssignmentsFunc(ctx, boardID)
}

func (m *mockCardLabelRepo) Add(context.Context, domain.ID, string) error    { return nil }
func (m *mockCardLabelRepo) Remove(context.Context, domain.ID, string) error { return nil }

type mockCardAssigneeRepo struct {
	listAssignmentsFunc func(ctx context.Context, boardID domain.ID) ([]domain.CardAssignee, error)
}

func (m *mockCardAssigneeRepo) ListAssignments(ctx context.Context, boardID domain.ID) ([]domain.CardAssignee, error) {
	return m.listAssignmentsFunc(ctx, boardID)
}

func (m *mockCardAssigneeRepo) Add(context.Context, domain.ID, string) error    { return nil }
func (m *mockCardAssigneeRepo) Remove(context.Context, domain.ID, string) error { return nil }

type mockActivityRepo struct {
	createFunc      func(ctx context.Context, a *domain.Activity) error
	listByBoardFunc func(ctx context.Context, boardID domain.ID, limit int) ([]*domain.Activity, error)
}

func (m *mockActivityRepo) Create(ctx context.Context, a *domain.Activity) error {
	return m.createFunc(ctx, a)
}

func (m *mockActivityRepo) ListByBoard(ctx context.Context, boardID domain.ID, limit int) ([]*domain.Activity, error) {
	return m.listByBoardFunc(ctx, boardID, limit)
}

// boardFixture returns a store holding board b1 with columns todo [c1, c2]
// and done [].
func boardFixture() *mockDataStore {
	b1 := domain.ConfirmedID("b1")
	todo := domain.ConfirmedID("todo")
	done := domain.ConfirmedID("done")

	return &mockDataStore{
		boards: &mockBoardRepo{
			getByIDFunc: func(_ context.Context, id domain.ID) (*domain.Board, error) {
				if id != b1 {
					return nil, domain.Rejected(domain.ErrNotFound)
				}
				return &domain.Board{ID: b1, Title: "Launch"}, nil
			},
		},
		columns: &mockColumnRepo{
			listByBoardFunc: func(context.Context, domain.ID) ([]*domain.Column, error) {
				return []*domain.Column{
					{ID: todo, BoardID: b1, Title: "To Do", Position: 0},
					{ID: done, BoardID: b1, Title: "Done", Position: 1},
				}, nil
			},
			getByIDFunc: func(_ context.Context, id domain.ID) (*domain.Column, error) {
				if id != todo && id != done {
					return nil, domain.Rejected(domain.ErrNotFound)
				}
				return &domain.Column{ID: id, BoardID: b1}, nil
			},
		},
		cards: &mockCardRepo{
			listByBoardFunc: func(context.Context, domain.ID) ([]*domain.Card, error) {
				return []*domain.Card{
					{ID: domain.ConfirmedID("c1"), ColumnID: todo, BoardID: b1, Title: "one", Position: 0},
					{ID: domain.ConfirmedID("c2"), ColumnID: todo, BoardID: b1, Title: "two", Position: 1},
				}, nil
			},
		},
		cardLabels: &mockCardLabelRepo{
			listByBoardFunc: func(context.Context, domain.ID) ([]domain.Label, error) {
				return []domain.Label{{ID: "bug", Name: "Bug", Color: "red"}}, nil
			},
			listAssignmentsFunc: func(context.Context, domain.ID) ([]domain.CardLabel, error) {
				return []domain.CardLabel{{CardID: domain.ConfirmedID("c2"), LabelID: "bug", BoardID: b1}}, nil
			},
		},
		cardAssignees: &mockCardAssigneeRepo{
			listAssignmentsFunc: func(context.Context, domain.ID) ([]domain.CardAssignee, error) {
				return nil, nil
			},
		},
		activities: &mockActivityRepo{},
	}
}
