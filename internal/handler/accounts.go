package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"giftcanvas-api/internal/middleware"
	"giftcanvas-api/internal/service"
	"giftcanvas-api/pkg/apierror"
	"giftcanvas-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AccountHandler handles tracked-account management and pipeline control.
type AccountHandler struct {
	accounts *service.AccountService
	manager  *service.WorkerManager
	logs     *service.EventLogService
	notifier *service.Notifier
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(accounts *service.AccountService, manager *service.WorkerManager, logs *service.EventLogService, notifier *service.Notifier) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		manager:  manager,
		logs:     logs,
		notifier: notifier,
	}
}

// userID resolves the authenticated tenant from the request context.
func userID(r *http.Request) string {
	if data := middleware.GetTokenDataFromContext(r.Context()); data != nil {
		return data.UserID
	}
	return ""
}

// List handles GET /accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context(), userID(r))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list accounts"))
		return
	}
	response.OK(w, map[string]any{"accounts": accounts})
}

// CreateRequest is the request body for account creation.
type CreateRequest struct {
	Username string         `json:"username"`
	Settings map[string]any `json:"settings"`
}

// Create handles POST /accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Username == "" {
		response.Error(w, apierror.BadRequest("username is required"))
		return
	}

	account, err := h.accounts.Create(r.Context(), userID(r), req.Username, req.Settings)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to create account"))
		return
	}
	response.OK(w, map[string]any{"account": account})
}

// UpdateRequest is the request body for account updates.
type UpdateRequest struct {
	Username string         `json:"username"`
	Settings map[string]any `json:"settings"`
}

// Update handles PATCH /accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	account, err := h.accounts.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req.Username, req.Settings)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to update account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.OK(w, map[string]any{"account": account})
}

// Delete handles DELETE /accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		response.Error(w, apierror.InternalError("failed to delete account"))
		return
	}
	response.OK(w, nil)
}

// Queue handles GET /accounts/{id}/queue
func (h *AccountHandler) Queue(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.accounts.Queue(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read queue"))
		return
	}
	if jobs == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.Raw(w, http.StatusOK, jobs)
}

// Gifted handles GET /accounts/{id}/gifted
func (h *AccountHandler) Gifted(w http.ResponseWriter, r *http.Request) {
	viewers, err := h.accounts.Gifted(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read gifted viewers"))
		return
	}
	if viewers == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.Raw(w, http.StatusOK, viewers)
}

// Logs handles GET /accounts/{id}/logs
func (h *AccountHandler) Logs(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	entries, err := h.logs.List(r.Context(), account.ID)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read log"))
		return
	}
	response.Raw(w, http.StatusOK, entries)
}

// Jobs handles GET /accounts/{id}/jobs - completed-job history.
func (h *AccountHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := h.accounts.CompletedJobs(r.Context(), userID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("job archive unavailable"))
		return
	}
	if jobs == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}
	response.Raw(w, http.StatusOK, jobs)
}

// Start handles POST /accounts/{id}/start
func (h *AccountHandler) Start(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	status := h.manager.Start(r.Context(), account)
	response.OK(w, map[string]any{"status": status})
}

// Stop handles POST /accounts/{id}/stop
func (h *AccountHandler) Stop(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	status := h.manager.Stop(r.Context(), account)
	response.OK(w, map[string]any{"status": status})
}

// Status handles GET /accounts/{id}/status
func (h *AccountHandler) Status(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	response.OK(w, map[string]any{"status": h.manager.Status(account.ID)})
}

// NotifyRequest is the request body for viewer notifications.
type NotifyRequest struct {
	Users   []string `json:"users"`
	Message string   `json:"message"`
}

// Notify handles POST /accounts/{id}/notify
func (h *AccountHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if len(req.Users) == 0 || req.Message == "" {
		response.Error(w, apierror.BadRequest("users and message are required"))
		return
	}

	account, err := h.accounts.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierror.InternalError("failed to get account"))
		return
	}
	if account == nil {
		response.Error(w, apierror.NotFound(""))
		return
	}

	if err := h.notifier.NotifyUsers(r.Context(), account.ID, req.Users, req.Message); err != nil {
		response.Error(w, apierror.InternalError("failed to notify viewers"))
		return
	}
	response.OK(w, map[string]any{"notified": len(req.Users)})
}
