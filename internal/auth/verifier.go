// Package auth turns bearer tokens issued by the identity service into the
// caller identity the workflows record as requester or reviewer.
package auth

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"org-lifecycle/internal/model"
	"org-lifecycle/pkg/apierror"
)

type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks an HMAC-signed access token and returns the identity it
// carries. The subject must be the numeric user id.
func (v *Verifier) Verify(tokenString string) (model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return model.Identity{}, apierror.Unauthorized("invalid or expired token")
	}

	id, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || id <= 0 {
		return model.Identity{}, apierror.Unauthorized("invalid token subject")
	}

	return model.Identity{
		ID:    id,
		Name:  strings.TrimSpace(claims.Name),
		Email: strings.TrimSpace(claims.Email),
		Role:  strings.ToLower(strings.TrimSpace(claims.Role)),
	}, nil
}
