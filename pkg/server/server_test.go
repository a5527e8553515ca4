package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/core"
	"github.com/cosmoos/cosmo-go/pkg/logging"
	"github.com/cosmoos/cosmo-go/pkg/models"
	"github.com/cosmoos/cosmo-go/pkg/server"
	"github.com/cosmoos/cosmo-go/pkg/storage"
	"github.com/cosmoos/cosmo-go/pkg/storage/storagetest"
)

func setupTestRouter(t *testing.T, store storage.RecordStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client, err := core.NewClient(core.DefaultConfig(),
		core.WithStore(store),
		core.WithClock(func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }),
		core.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return server.New(client).SetupRouter()
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := setupTestRouter(t, storagetest.NewMemoryStore())
	w := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetDimension(t *testing.T) {
	r := setupTestRouter(t, storagetest.NewMemoryStore())

	for _, dim := range []string{"cognitive", "physiological", "reflection"} {
		w := do(t, r, http.MethodGet, "/api/dimensions/"+dim, nil)
		require.Equal(t, http.StatusOK, w.Code, dim)

		var snapshot struct {
			Dimension string          `json:"dimension"`
			Stale     bool            `json:"stale"`
			Data      json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		assert.Equal(t, dim, snapshot.Dimension)
		assert.False(t, snapshot.Stale)
		assert.NotEmpty(t, snapshot.Data)
	}

	w := do(t, r, http.MethodGet, "/api/dimensions/spiritual", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComputeInsights(t *testing.T) {
	w := do(t, setupTestRouter(t, storagetest.NewMemoryStore()), http.MethodPost, "/api/insights/compute", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, setupTestRouter(t, storagetest.FailingStore{}), http.MethodPost, "/api/insights/compute", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogMood(t *testing.T) {
	r := setupTestRouter(t, storagetest.NewMemoryStore())

	w := do(t, r, http.MethodPost, "/api/reflection/mood", server.MoodRequest{Valence: 4, Label: "calm"})
	require.Equal(t, http.StatusCreated, w.Code)
	var mood models.MoodCheckIn
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mood))
	assert.Equal(t, 4, mood.Valence)
	assert.NotEmpty(t, mood.ID)

	w = do(t, r, http.MethodPost, "/api/reflection/mood", server.MoodRequest{Valence: 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/reflection/mood", map[string]string{"label": "no valence"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournal(t *testing.T) {
	r := setupTestRouter(t, storagetest.NewMemoryStore())

	w := do(t, r, http.MethodPost, "/api/reflection/journal", server.JournalRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/reflection/journal", server.JournalRequest{Text: "Slept well", Tags: []string{"sleep"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var entry models.JournalEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))

	w = do(t, r, http.MethodDelete, "/api/reflection/journal/"+entry.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/api/reflection/journal/"+entry.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversations(t *testing.T) {
	r := setupTestRouter(t, storagetest.NewMemoryStore())

	w := do(t, r, http.MethodPut, "/api/reflection/conversations/conv-1", server.ConversationRequest{
		Title:    "Morning",
		Messages: []models.Message{{Role: "user", Content: "hi"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/reflection/conversations/conv-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "Morning", conv.Title)
	assert.Len(t, conv.Messages, 1)

	w = do(t, r, http.MethodGet, "/api/reflection/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conv-1")

	w = do(t, r, http.MethodDelete, "/api/reflection/conversations/conv-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/reflection/conversations/conv-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_Shutdown(t *testing.T) {
	client, err := core.NewClient(core.DefaultConfig(),
		core.WithStore(storagetest.NewMemoryStore()),
		core.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.New(client).Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
