package middleware

import (
	"context"
	"net/http"
	"strings"

	"genmedia/internal/infra/firebase"
)

// TokenVerifier is the single operation the auth middleware needs from the
// identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*firebase.Identity, error)
}

// AllowFunc decides whether a verified email may use the API. Injected so the
// allow-list can later come from a dynamic store.
type AllowFunc func(email string) bool

type userKey string

const (
	userIDKey    userKey = "user_id"
	userEmailKey userKey = "user_email"
)

// Auth verifies the bearer token on every request and rejects callers whose
// email is not allow-listed. The verified uid and email land in the request
// context.
func Auth(verifier TokenVerifier, allowed AllowFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			identity, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if !allowed(identity.Email) {
				http.Error(w, "access denied", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, identity.UID)
			ctx = context.WithValue(ctx, userEmailKey, identity.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AllowList builds an AllowFunc from a static email list, case-insensitive.
func AllowList(emails []string) AllowFunc {
	allow := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		allow[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return func(email string) bool {
		_, ok := allow[strings.ToLower(strings.TrimSpace(email))]
		return ok
	}
}

// UserIDFromContext returns the authenticated uid, or "" outside auth routes.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UserEmailFromContext returns the authenticated email, or "".
func UserEmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userEmailKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithUser injects a principal; used by handler tests.
func ContextWithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, userEmailKey, email)
}
