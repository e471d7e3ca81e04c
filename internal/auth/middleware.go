package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// contextKey is a type for context keys
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "userId"
	// RoleKey is the context key for the authenticated user's role
	RoleKey contextKey = "role"
)

// Middleware provides authentication middleware for HTTP handlers
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// RequireAuth is middleware that requires a valid JWT token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// RequireRole is RequireAuth plus a role check. Admins always pass.
func (m *Middleware) RequireRole(roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, ok := m.authenticate(w, r)
			if !ok {
				return
			}
			if !hasRole(identity.Role, roles) {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next(w, r.WithContext(WithIdentity(r.Context(), identity)))
		}
	}
}

// OptionalAuth is middleware that validates JWT if present but doesn't require it
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" && m.authService != nil {
			if identity, err := m.authService.ValidateAccessToken(token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
		}
		next(w, r)
	}
}

func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*Identity, bool) {
	token := extractToken(r)
	if token == "" {
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authorization required")
		return nil, false
	}
	if m.authService == nil {
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
		return nil, false
	}

	identity, err := m.authService.ValidateAccessToken(token)
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
		return nil, false
	}
	return identity, true
}

func hasRole(role models.Role, allowed []models.Role) bool {
	if role == models.RoleAdmin || len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, identity.UserID)
	return context.WithValue(ctx, RoleKey, identity.Role)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetRole extracts the role from the request context. Anonymous callers
// have no role.
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(RoleKey).(models.Role)
	return role
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// extractToken extracts the JWT token from the Authorization header or query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	return ""
}
