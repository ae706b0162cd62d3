package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/session"
)

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	BoardID string `path:"boardID" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body *domain.Board
}

type ListActivitiesInput struct {
	BoardID string `path:"boardID" doc:"Board ID"`
	Limit   int    `query:"limit" default:"50" minimum:"1" maximum:"1000" doc:"Maximum number of entries"`
}

type ListActivitiesOutput struct {
	Body []*domain.Activity
}

func RegisterBoardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *struct{}) (*ListBoardsOutput, error) {
		boards, err := store.Boards().List(ctx)
		if err != nil {
			return nil, storeError("failed to list boards", err)
		}
		if boards == nil {
			boards = []*domain.Board{}
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Get a board with its columns and cards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		board, err := session.FetchBoard(ctx, store, domain.ConfirmedID(input.BoardID))
		if err != nil {
			return nil, storeError("failed to get board", err)
		}

		return &GetBoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-activities",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}/activities",
		Summary:     "List recent board activity",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListActivitiesInput) (*ListActivitiesOutput, error) {
		activities, err := store.Activities().ListByBoard(ctx, domain.ConfirmedID(input.BoardID), input.Limit)
		if err != nil {
			return nil, storeError("failed to list activities", err)
		}
		if activities == nil {
			activities = []*domain.Activity{}
		}

		return &ListActivitiesOutput{Body: activities}, nil
	})
}
