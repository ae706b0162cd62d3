package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/position"
	"github.com/gosuda/boardsync/internal/server/middleware"
)

type CreateColumnInput struct {
	BoardID string `path:"boardID" doc:"Board ID"`
	Body    struct {
		Title string `json:"title" minLength:"1" maxLength:"200" doc:"Column title"`
	}
}

type ColumnOutput struct {
	Body *domain.Column
}

type CreateCardInput struct {
	ColumnID string `path:"columnID" doc:"Column ID"`
	Body     struct {
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Card title"`
		Description *string    `json:"description,omitempty" doc:"Card description"`
		Priority    *string    `json:"priority,omitempty" enum:"low,medium,high,urgent" doc:"Card priority"`
		DueDate     *time.Time `json:"due_date,omitempty" doc:"Due date"`
	}
}

type CardOutput struct {
	Body *domain.Card
}

type UpdateCardInput struct {
	CardID string `path:"cardID" doc:"Card ID"`
	Body   struct {
		Title       *string    `json:"title,omitempty" maxLength:"500" doc:"Card title"`
		Description *string    `json:"description,omitempty" doc:"Card description"`
		Priority    *string    `json:"priority,omitempty" enum:"low,medium,high,urgent" doc:"Card priority"`
		DueDate     *time.Time `json:"due_date,omitempty" doc:"Due date"`
	}
}

type MoveCardInput struct {
	CardID string `path:"cardID" doc:"Card ID"`
	Body   struct {
		ColumnID string `json:"column_id" minLength:"1" doc:"Destination column ID"`
		Index    int    `json:"index" minimum:"0" doc:"Destination index, clamped to the column length"`
	}
}

type DeleteCardInput struct {
	CardID string `path:"cardID" doc:"Card ID"`
}

type DeleteColumnInput struct {
	ColumnID string `path:"columnID" doc:"Column ID"`
}

// RegisterCardRoutes registers the column and card write routes.
func RegisterCardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-column",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/columns",
		Summary:       "Append a column to a board",
		Tags:          []string{"Columns"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateColumnInput) (*ColumnOutput, error) {
		boardID := domain.ConfirmedID(input.BoardID)
		last, ok, err := store.Columns().MaxPosition(ctx, boardID)
		if err != nil {
			return nil, storeError("failed to read column positions", err)
		}
		next := position.Next(last, ok)

		col, err := store.Columns().Create(ctx, &domain.Column{
			BoardID:  boardID,
			Title:    strings.TrimSpace(input.Body.Title),
			Position: next,
		})
		if err != nil {
			return nil, storeError("failed to create column", err)
		}

		return &ColumnOutput{Body: col}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-column",
		Method:      http.MethodDelete,
		Path:        "/columns/{columnID}",
		Summary:     "Delete a column and its cards",
		Tags:        []string{"Columns"},
	}, func(ctx context.Context, input *DeleteColumnInput) (*struct{}, error) {
		if err := store.Columns().Delete(ctx, domain.ConfirmedID(input.ColumnID)); err != nil {
			return nil, storeError("failed to delete column", err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-card",
		Method:        http.MethodPost,
		Path:          "/columns/{columnID}/cards",
		Summary:       "Append a card to a column",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateCardInput) (*CardOutput, error) {
		col, err := store.Columns().GetByID(ctx, domain.ConfirmedID(input.ColumnID))
		if err != nil {
			return nil, storeError("failed to get column", err)
		}
		last, ok, err := store.Cards().MaxPosition(ctx, col.ID)
		if err != nil {
			return nil, storeError("failed to read card positions", err)
		}
		next := position.Next(last, ok)

		row := &domain.Card{
			ColumnID:    col.ID,
			BoardID:     col.BoardID,
			Title:       strings.TrimSpace(input.Body.Title),
			Description: input.Body.Description,
			Position:    next,
			Priority:    priority(input.Body.Priority),
			DueDate:     input.Body.DueDate,
		}
		if userID, ok := middleware.UserIDFromContext(ctx); ok {
			row.CreatedBy = userID
		}

		card, err := store.Cards().Create(ctx, row)
		if err != nil {
			return nil, storeError("failed to create card", err)
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-card",
		Method:      http.MethodPatch,
		Path:        "/cards/{cardID}",
		Summary:     "Update card fields",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *UpdateCardInput) (*CardOutput, error) {
		id := domain.ConfirmedID(input.CardID)
		patch := domain.CardPatch{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    priority(input.Body.Priority),
			DueDate:     input.Body.DueDate,
		}
		if patch.Empty() {
			return nil, huma.Error400BadRequest("empty update")
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
			return nil, huma.Error400BadRequest("title must not be empty")
		}

		if err := store.Cards().Update(ctx, id, patch); err != nil {
			return nil, storeError("failed to update card", err)
		}
		card, err := store.Cards().GetByID(ctx, id)
		if err != nil {
			return nil, storeError("failed to get card", err)
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPost,
		Path:        "/cards/{cardID}/move",
		Summary:     "Move a card to a column and index",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *MoveCardInput) (*CardOutput, error) {
		id := domain.ConfirmedID(input.CardID)
		if err := store.Cards().Move(ctx, id, domain.ConfirmedID(input.Body.ColumnID), input.Body.Index); err != nil {
			return nil, storeError("failed to move card", err)
		}
		card, err := store.Cards().GetByID(ctx, id)
		if err != nil {
			return nil, storeError("failed to get card", err)
		}

		return &CardOutput{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-card",
		Method:      http.MethodDelete,
		Path:        "/cards/{cardID}",
		Summary:     "Delete a card",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *DeleteCardInput) (*struct{}, error) {
		if err := store.Cards().Delete(ctx, domain.ConfirmedID(input.CardID)); err != nil {
			return nil, storeError("failed to delete card", err)
		}
		return nil, nil
	})
}

func priority(s *string) *domain.Priority {
	if s == nil {
		return nil
	}
	p := domain.Priority(*s)
	return &p
}
