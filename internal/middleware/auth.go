package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"org-lifecycle/internal/model"
	"org-lifecycle/pkg/apierror"
)

type identityVerifier interface {
	Verify(tokenString string) (model.Identity, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	verifier identityVerifier
}

func NewAuthMiddleware(verifier identityVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth resolves the bearer token into the caller's identity. Role
// checks happen later, against the policy, in the workflows.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeJSONError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, "missing or invalid authorization header")
			return
		}

		identity, err := m.verifier.Verify(strings.TrimSpace(header[7:]))
		if err != nil {
			message := "invalid or expired token"
			var apiErr *apierror.APIError
			if errors.As(err, &apiErr) {
				message = apiErr.Message
			}
			writeJSONError(w, http.StatusUnauthorized, apierror.CodeUnauthorized, message)
			return
		}

		noteUser(r.Context(), identity.ID)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}
