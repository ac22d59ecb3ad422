package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// UserIDKey is the context key for the authenticated user id
const UserIDKey contextKey = "user_id"

// TokenVerifier resolves a bearer token to a user id.
// *websocket.TokenValidator implements it.
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (int32, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate returns an Echo middleware that requires a valid bearer token
// and stores the user id in the request context
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorizedError(c, "missing or malformed authorization header")
			}

			userID, err := m.verifier.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Request().URL.Path).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), userID)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// WithUserID returns a copy of ctx carrying the user id
func WithUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the authenticated user id, or 0 when absent
func GetUserID(c echo.Context) int32 {
	if id, ok := c.Request().Context().Value(UserIDKey).(int32); ok {
		return id
	}
	return 0
}
