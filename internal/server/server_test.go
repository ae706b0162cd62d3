package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/boardsync/internal/config"
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/server"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	domain.BoardRepository
	listFunc func(ctx context.Context) ([]*domain.Board, error)
}

func (m *mockBoardRepo) List(ctx context.Context) ([]*domain.Board, error) {
	return m.listFunc(ctx)
}

type mockStore struct {
	domain.RemoteStore
	boards *mockBoardRepo
}

func (m *mockStore) Boards() domain.BoardRepository { return m.boards }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

type nopStream struct{}

func (nopStream) Subscribe(context.Context, string, []domain.TableFilter) (domain.Subscription, error) {
	return nil, errors.New("not connected")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
			RateLimit:    0.001,
			RateBurst:    2,
		},
	}
}

func newServer(t *testing.T, health server.Pinger) *server.Server {
	t.Helper()

	store := &mockStore{boards: &mockBoardRepo{
		listFunc: func(context.Context) ([]*domain.Board, error) {
			return []*domain.Board{{ID: domain.ConfirmedID("b1"), Title: "Launch"}}, nil
		},
	}}
	return server.New(t.Context(), testConfig(), store, nopStream{}, health)
}

func serve(s *server.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		health   server.Pinger
		wantCode int
		wantBody string
	}{
		{name: "no dependency", wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "database up", health: &mockPinger{}, wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "database down", health: &mockPinger{err: errors.New("refused")}, wantCode: http.StatusServiceUnavailable, wantBody: `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(newServer(t, tt.health), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAPI_MountedUnderV1(t *testing.T) {
	t.Parallel()

	rec := serve(newServer(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/boards", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Launch")
}

func TestAPI_RateLimited(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/boards", http.NoBody)
		req.RemoteAddr = "10.1.1.1:5000"
		codes = append(codes, serve(s, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/boards", http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(newServer(t, nil), req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWS_RequiresUpgrade(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newServer(t, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws/board/b1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
