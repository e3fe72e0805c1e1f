package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "pagehook/internal/api/context"
	"pagehook/internal/pkg/errors"
	"pagehook/internal/platform/auth"
)

type AuthMiddleware struct {
	tokenSvc *auth.TokenService
	apiKeys  *APIKeyAuthenticator
}

func NewAuthMiddleware(tokenSvc *auth.TokenService, apiKeys *APIKeyAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, apiKeys: apiKeys}
}

// Handle authenticates a request from either a JWT access token or a
// "phk_"-prefixed API key, both carried as a Bearer credential.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		var claims *auth.Claims
		var err error
		if strings.HasPrefix(parts[1], apiKeyPrefix) {
			claims, err = m.apiKeys.Authenticate(parts[1])
		} else {
			claims, err = m.tokenSvc.ValidateToken(parts[1])
		}
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired credentials", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Claims, claims)
		next(w, r.WithContext(ctx))
	}
}
