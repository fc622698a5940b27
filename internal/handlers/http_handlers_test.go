package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lotterybot/internal/config"
	"lotterybot/internal/models"
	"lotterybot/internal/notify"
	"lotterybot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory services.Store for routing tests.
type memStore struct {
	values map[string]map[string][]byte
}

func (m *memStore) Read(_ context.Context, namespaceID, key string, v any) (bool, error) {
	raw, ok := m.values[namespaceID][key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *memStore) Write(_ context.Context, namespaceID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if m.values[namespaceID] == nil {
		m.values[namespaceID] = map[string][]byte{}
	}
	m.values[namespaceID][key] = raw
	return nil
}

func (m *memStore) CreateNamespace(_ context.Context, _ string) (string, error) {
	return "ns-fresh", nil
}

func (m *memStore) DeleteNamespace(_ context.Context, _ string) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Post(_ context.Context, _ string) error { return nil }

var _ notify.Notifier = noopNotifier{}

func newTestRouter(t *testing.T, store *memStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		ConfigNamespaceID: "cfg-ns",
		DataNamespaceID:   "data-ns",
		RetryInHrs:        4,
	}
	service := services.NewLotteryService(store, noopNotifier{}, cfg)
	router := gin.New()
	NewHTTPHandler(service).RegisterRoutes(router)
	return router
}

func seed(t *testing.T, store *memStore, namespaceID, key string, v any) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), namespaceID, key, v))
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCalendarStart(t *testing.T) {
	store := &memStore{values: map[string]map[string][]byte{}}
	router := newTestRouter(t, store)
	seed(t, store, "cfg-ns", "emoji-lottery-config", models.LotteryConfig{Active: false, Season: 3})

	w := do(router, http.MethodPost, "/calendar_start", `{"calendar_name":"Winter"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Winter season 4 commence", w.Body.String())
}

func TestCalendarStart_DecodeError(t *testing.T) {
	router := newTestRouter(t, &memStore{values: map[string]map[string][]byte{}})

	w := do(router, http.MethodPost, "/calendar_start", `{"calendar_name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to decode calendar event")
}

func TestSubmitRoute(t *testing.T) {
	store := &memStore{values: map[string]map[string][]byte{}}
	router := newTestRouter(t, store)
	seed(t, store, "cfg-ns", "emoji-lottery-config", models.LotteryConfig{
		Active:          true,
		Jackpot:         "🎉",
		Season:          4,
		RetryInHrs:      4,
		DataNamespaceID: "data-ns",
	})

	t.Run("accepted guess", func(t *testing.T) {
		w := do(router, http.MethodPost, "/submit/discord/alice", `{"submission":"🙂","ts":1000}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Not quite what I had in mind, try again in 4 hrs", w.Body.String())
	})

	t.Run("jackpot guess", func(t *testing.T) {
		w := do(router, http.MethodPost, "/submit/discord/carol", `{"submission":"🎉","ts":1000}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Bingo!", w.Body.String())
	})

	t.Run("submit path ending in the last segment is unhandled", func(t *testing.T) {
		w := do(router, http.MethodPost, "/submit/discord/last", `{"submission":"🙂","ts":1000}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, `No handler defined for route "/submit/discord/last"`, w.Body.String())
	})

	t.Run("submit path without a submitter is unhandled", func(t *testing.T) {
		w := do(router, http.MethodPost, "/submit/discord", `{"submission":"🙂","ts":1000}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "No handler defined for route")
	})
}

func TestCheckLastSubmission(t *testing.T) {
	store := &memStore{values: map[string]map[string][]byte{}}
	router := newTestRouter(t, store)

	t.Run("nothing submitted yet", func(t *testing.T) {
		w := do(router, http.MethodGet, "/submit/discord/last/bob", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "You haven't submitted anything yet!", w.Body.String())
	})

	t.Run("stored guess is reported", func(t *testing.T) {
		seed(t, store, "data-ns", "bob", models.Guess{Value: "🙂", CreatedAt: 1000})
		w := do(router, http.MethodGet, "/submit/discord/last/bob", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "🙂")
	})
}

func TestEvents(t *testing.T) {
	router := newTestRouter(t, &memStore{values: map[string]map[string][]byte{}})

	event := `{"type":"message","channel":"C2147483705","user":"U2147483697","text":"Hello world","ts":"1355517523.000005"}`
	w := do(router, http.MethodPost, "/events", event)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/events", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnhandledRoute(t *testing.T) {
	router := newTestRouter(t, &memStore{values: map[string]map[string][]byte{}})

	w := do(router, http.MethodPost, "/unknown/path", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, `No handler defined for route "/unknown/path"`, w.Body.String())
}
