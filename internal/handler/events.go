package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/service"
	"giftcanvas-api/pkg/apierror"
	"giftcanvas-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// EventsHandler streams pipeline events (logs, new jobs, status changes)
// to dashboard clients over SSE.
type EventsHandler struct {
	accounts *service.AccountService
	hub      *realtime.Hub
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(accounts *service.AccountService, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{accounts: accounts, hub: hub}
}

// AccountEvents handles GET /accounts/{id}/events - an SSE stream of one
// account's log and job events.
func (h *EventsHandler) AccountEvents(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	h.stream(w, r, realtime.AccountTopic(account.ID))
}

// UserEvents handles GET /events - an SSE stream of the tenant's
// account status changes.
func (h *EventsHandler) UserEvents(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, realtime.UserTopic(userID(r)))
}

// stream subscribes to a hub topic and forwards messages until the
// client goes away.
func (h *EventsHandler) stream(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, apierror.InternalError("streaming unsupported"))
		return
	}

	messages, unsubscribe := h.hub.Subscribe(topic)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg := <-messages:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
