package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (c *stubCompleter) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	c.calls++
	return c.reply, c.err
}

// stubStore implements every domain store interface and counts backend touches.
type stubStore struct {
	calls     int
	user      *domain.User
	exercises []domain.Exercise
	insertErr error
}

func (s *stubStore) RecentSessions(ctx context.Context, userID string, limit int) ([]domain.WorkoutSession, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) RecentSleep(ctx context.Context, userID string, limit int) ([]domain.SleepEntry, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	s.calls++
	return s.user, nil
}

func (s *stubStore) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	s.calls++
	return s.exercises, nil
}

func (s *stubStore) Insert(ctx context.Context, table, userID string, data map[string]any) (map[string]any, error) {
	s.calls++
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	return map[string]any{"id": "server-1", "user_id": userID}, nil
}

func (s *stubStore) Update(ctx context.Context, table, userID string, id any, data map[string]any) (map[string]any, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) Delete(ctx context.Context, table, userID string, id any) error {
	s.calls++
	return nil
}

func (s *stubStore) RecentSessionStarts(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	s.calls++
	return nil, nil
}

func (s *stubStore) StreakCounters(ctx context.Context, userID string) (int, int, error) {
	s.calls++
	return 0, 0, nil
}

func (s *stubStore) SetStreak(ctx context.Context, userID string, current int, longest *int) error {
	s.calls++
	return nil
}

func newTestMux(store *stubStore, completer *stubCompleter) *http.ServeMux {
	handler := NewHandler(
		domain.NewInsightService(store, completer),
		domain.NewParseService(store, completer),
		domain.NewSyncService(store),
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func TestPreflightBypassesBackend(t *testing.T) {
	store := &stubStore{}
	completer := &stubCompleter{}
	mux := newTestMux(store, completer)

	for _, path := range []string{"/v1/generate-insight", "/v1/parse-workout", "/v1/sync-data"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, path)
		require.Equal(t, "ok", rr.Body.String(), path)
		require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"), path)
		require.Equal(t, "authorization, x-client-info, apikey, content-type", rr.Header().Get("Access-Control-Allow-Headers"), path)
	}

	require.Zero(t, store.calls)
	require.Zero(t, completer.calls)
}

func TestGenerateInsightRequiresUserID(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/v1/generate-insight", strings.NewReader(`{"type":"daily"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "missing userId", body["error"])
}

func TestGenerateInsightSuccess(t *testing.T) {
	store := &stubStore{user: &domain.User{ID: "user-1", Name: "Ana"}}
	completer := &stubCompleter{reply: "Great streak, keep it rolling! 🔥"}
	mux := newTestMux(store, completer)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate-insight", strings.NewReader(`{"userId":"user-1","type":"daily"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp GenerateInsightResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Great streak, keep it rolling! 🔥", resp.Insight)
	require.Equal(t, domain.InsightDaily, resp.Type)
}

func TestGenerateInsightCompletionFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("completion API key not configured")}
	mux := newTestMux(&stubStore{}, completer)

	req := httptest.NewRequest(http.MethodPost, "/v1/generate-insight", strings.NewReader(`{"userId":"user-1","type":"daily"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "completion API key not configured", body["error"])
}

func TestParseWorkoutRequiresInputAndUser(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/v1/parse-workout", strings.NewReader(`{"userId":"user-1"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParseWorkoutSuccess(t *testing.T) {
	store := &stubStore{exercises: []domain.Exercise{{ID: "ex-1", Name: "Bench Press"}}}
	completer := &stubCompleter{reply: `[{"exerciseName":"Bench Press","weight":80,"sets":3,"reps":10}]`}
	mux := newTestMux(store, completer)

	req := httptest.NewRequest(http.MethodPost, "/v1/parse-workout", strings.NewReader(`{"input":"bench 80 3 10","userId":"user-1"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp ParseWorkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, completer.reply, resp.RawAIResponse)
	require.Len(t, resp.Parsed, 1)
	require.NotNil(t, resp.Parsed[0].ExerciseID)
	require.Equal(t, "ex-1", *resp.Parsed[0].ExerciseID)
}

func TestSyncRequiresChanges(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sync-data", strings.NewReader(`{"userId":"user-1"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSyncSuccessOmitsEmptyErrors(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	body := `{"userId":"user-1","changes":[{"table":"sleep_entries","operation":"insert","data":{"hours_slept":7.5},"localId":"l1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sync-data", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Equal(t, true, raw["success"])
	require.Equal(t, float64(1), raw["syncedCount"])
	require.Equal(t, float64(0), raw["errorCount"])
	require.NotContains(t, raw, "errors")
}

func TestSyncReportsPartialFailure(t *testing.T) {
	store := &stubStore{insertErr: errors.New("duplicate key")}
	mux := newTestMux(store, &stubCompleter{})

	body := `{"userId":"user-1","changes":[
        {"table":"workout_sets","operation":"insert","data":{"reps":10},"localId":"bad"},
        {"table":"workout_sets","operation":"delete","data":{"id":"set-1"},"localId":"good"}
    ]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sync-data", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.SyncedCount)
	require.Equal(t, 1, resp.ErrorCount)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "good", resp.Results[0].LocalID)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "bad", resp.Errors[0].LocalID)
}

func TestUnsupportedMethod(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync-data", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMalformedBody(t *testing.T) {
	mux := newTestMux(&stubStore{}, &stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/v1/generate-insight", strings.NewReader(`{`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
