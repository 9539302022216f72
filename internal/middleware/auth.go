package middleware

import (
	"context"
	"net/http"
	"strings"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/service"
	"giftcanvas-api/pkg/apierror"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	TokenService *service.TokenService
}

// NewAuthMiddleware creates an authentication middleware with injected
// dependencies. Session tokens arrive in X-Token or as a Bearer token.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Token")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			// SSE consumers (EventSource) cannot set headers.
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Token or Authorization header."))
				return
			}

			if cfg.TokenService == nil {
				writeError(w, apierror.ServiceUnavailable("authentication backend unavailable"))
				return
			}

			tokenData, err := cfg.TokenService.ValidateToken(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
