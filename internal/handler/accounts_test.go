package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"giftcanvas-api/internal/handler"
	"giftcanvas-api/internal/livefeed"
	"giftcanvas-api/internal/middleware"
	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"
	"giftcanvas-api/internal/router"
	"giftcanvas-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// injectUser stands in for the auth middleware and scopes every request
// to tenant u1.
func injectUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.TokenDataKey, &model.TokenData{UserID: "u1"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type apiFixture struct {
	mux     http.Handler
	manager *service.WorkerManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logs := repository.NewMemoryEventLog()
	ledger := repository.NewMemoryGiftLedger()
	queue := repository.NewMemoryJobQueue()
	accounts := repository.NewMemoryAccountRepository()
	hub := realtime.NewHub()

	logService := service.NewEventLogService(logs, hub)
	listeners := service.NewListenerService(livefeed.NewSimProvider(), ledger, queue, logService, hub, time.Second)
	consumer := service.NewQueueConsumer(queue, nil, logService, service.SimulatedProcessor{Delay: time.Millisecond}, 20*time.Millisecond)
	manager := service.NewWorkerManager(listeners, consumer, logService, hub)
	accountService := service.NewAccountService(accounts, queue, ledger, nil, manager)
	notifier := service.NewNotifier(logService)

	mux := router.New(router.Config{
		Handler:        handler.New("test"),
		AccountHandler: handler.NewAccountHandler(accountService, manager, logService, notifier),
		EventsHandler:  handler.NewEventsHandler(accountService, hub),
		AuthMiddleware: injectUser,
	})

	return &apiFixture{mux: mux, manager: manager}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func (f *apiFixture) createAccount(t *testing.T, username string) string {
	t.Helper()

	rec, payload := f.do(t, http.MethodPost, "/api/v1/accounts", `{"username":"`+username+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	account := payload["account"].(map[string]any)
	return account["id"].(string)
}

func TestCreateAndListAccounts(t *testing.T) {
	f := newAPIFixture(t)

	id := f.createAccount(t, "alice_streams")
	require.NotEmpty(t, id)

	rec, payload := f.do(t, http.MethodGet, "/api/v1/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["ok"])

	accounts := payload["accounts"].([]any)
	require.Len(t, accounts, 1)
	account := accounts[0].(map[string]any)
	assert.Equal(t, "alice_streams", account["username"])
	assert.Equal(t, model.StatusStopped, account["status"])
}

func TestCreateAccountRequiresUsername(t *testing.T) {
	f := newAPIFixture(t)

	rec, payload := f.do(t, http.MethodPost, "/api/v1/accounts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, payload["ok"])
}

func TestStartStopLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAccount(t, "alice_streams")

	rec, payload := f.do(t, http.MethodPost, "/api/v1/accounts/"+id+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusRunning, payload["status"])

	// Starting again reports the current status instead of erroring.
	rec, payload = f.do(t, http.MethodPost, "/api/v1/accounts/"+id+"/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusRunning, payload["status"])

	rec, payload = f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusRunning, payload["status"])

	rec, payload = f.do(t, http.MethodPost, "/api/v1/accounts/"+id+"/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusStopped, payload["status"])

	rec, payload = f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusStopped, payload["status"])
}

func TestUnknownAccountIs404(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{
		"/api/v1/accounts/nope/status",
		"/api/v1/accounts/nope/queue",
		"/api/v1/accounts/nope/gifted",
		"/api/v1/accounts/nope/logs",
	} {
		rec, _ := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec, _ := f.do(t, http.MethodPost, "/api/v1/accounts/nope/start", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueAndGiftedStartEmpty(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAccount(t, "alice_streams")

	rec, _ := f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec, _ = f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/gifted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestNotifyWritesLogEntries(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAccount(t, "alice_streams")

	rec, payload := f.do(t, http.MethodPost, "/api/v1/accounts/"+id+"/notify",
		`{"users":["bob","carol"],"message":"your drawing is ready"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), payload["notified"])

	rec, _ = f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Text, "notified @")
	assert.Equal(t, model.LogLevelNotify, entries[0].Level)
}

func TestNotifyValidatesBody(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAccount(t, "alice_streams")

	rec, _ := f.do(t, http.MethodPost, "/api/v1/accounts/"+id+"/notify", `{"users":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeleteAccount(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createAccount(t, "alice_streams")

	rec, payload := f.do(t, http.MethodPatch, "/api/v1/accounts/"+id,
		`{"username":"alice_renamed","settings":{"theme":"dark"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	account := payload["account"].(map[string]any)
	assert.Equal(t, "alice_renamed", account["username"])

	rec, _ = f.do(t, http.MethodDelete, "/api/v1/accounts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/v1/accounts/"+id+"/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec, payload := f.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", payload["status"])

	rec, payload = f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])
}
