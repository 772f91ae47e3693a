package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"iaset/internal/credentials"
)

// TokenValidator is the slice of the credential service the guards need.
type TokenValidator interface {
	ValidateToken(tokenString string) (*credentials.Claims, error)
}

// Context keys for storing authenticated actor information.
type contextKeyUserID struct{}
type contextKeyEmail struct{}
type contextKeyRole struct{}
type contextKeyTokenType struct{}

var (
	ContextKeyUserID    = contextKeyUserID{}
	ContextKeyEmail     = contextKeyEmail{}
	ContextKeyRole      = contextKeyRole{}
	ContextKeyTokenType = contextKeyTokenType{}
)

// GetUserID retrieves the authenticated subject id from the context.
func GetUserID(ctx context.Context) int64 {
	id, ok := ctx.Value(ContextKeyUserID).(int64)
	if !ok {
		return 0
	}
	return id
}

// GetEmail retrieves the authenticated email from the context.
func GetEmail(ctx context.Context) string {
	email, ok := ctx.Value(ContextKeyEmail).(string)
	if !ok {
		return ""
	}
	return email
}

// GetRole retrieves the admin role from the context, empty for user tokens.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// GetTokenType retrieves the token type discriminator from the context.
func GetTokenType(ctx context.Context) string {
	typ, ok := ctx.Value(ContextKeyTokenType).(string)
	if !ok {
		return ""
	}
	return typ
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

// RequireAuth accepts any valid bearer token and stashes its claims in the
// request context. Purely claims-based, the database is never consulted.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireToken(validator, logger, "")
}

// RequireAdmin additionally rejects tokens whose type claim is not "admin",
// so a well-formed user token never opens an admin route.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireToken(validator, logger, credentials.TokenTypeAdmin)
}

func requireToken(validator TokenValidator, logger *slog.Logger, wantType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if wantType != "" && claims.Type != wantType {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - wrong token type",
					"token_type", claims.Type,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Admin token required")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyUserID, claims.SubjectID())
			ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = context.WithValue(ctx, ContextKeyTokenType, claims.Type)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
