package handler

import (
	"encoding/json"
	"net/http"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/repository"
	"giftcanvas-api/internal/service"
	"giftcanvas-api/pkg/apierror"
	"giftcanvas-api/pkg/response"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	tokenService   *service.TokenService
	activationRepo repository.ActivationRepository
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokenService *service.TokenService, activationRepo repository.ActivationRepository) *AuthHandler {
	return &AuthHandler{
		tokenService:   tokenService,
		activationRepo: activationRepo,
	}
}

// TokenRequest represents the request body for token generation.
type TokenRequest struct {
	Key      string `json:"key"`
	DeviceID string `json:"device_id"`
}

// GenerateToken handles POST /auth/token
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.Key == "" {
		response.Error(w, apierror.BadRequest("key is required"))
		return
	}

	validation, err := h.activationRepo.ValidateKey(r.Context(), req.Key, req.DeviceID)
	if err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	tokenData := model.TokenData{
		ActivationID: validation.ActivationID,
		UserID:       validation.UserID,
		DeviceID:     validation.DeviceID,
		Role:         "bot",
	}

	token, err := h.tokenService.GenerateToken(r.Context(), tokenData)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to generate token"))
		return
	}

	response.OK(w, map[string]any{
		"token":      token,
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}

// RevokeToken handles POST /auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]any{"status": "revoked"})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Token")
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokenService.RefreshToken(r.Context(), token); err != nil {
		response.Error(w, apierror.Unauthorized(err.Error()))
		return
	}

	response.OK(w, map[string]any{
		"status":     "refreshed",
		"expires_in": int(service.TokenTTL.Seconds()),
	})
}
