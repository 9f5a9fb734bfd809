package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contextchat/backend/internal/models"
)

type contextKey int

const principalKey contextKey = iota

// BearerToken extracts the bearer credential from the Authorization
// header. Returns "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Middleware authenticates every request with the Verifier and stores
// the resolved principal on the request context. Missing and invalid
// credentials both answer 401, with distinguishable messages.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeAuthError(w, "No token, authorization denied")
			return
		}

		principal, err := v.Verify(token)
		if err != nil {
			writeAuthError(w, "Token is not valid")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the authenticated principal stored by Middleware.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(models.Principal)
	return principal, ok
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
