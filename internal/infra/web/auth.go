// File: internal/infra/web/auth.go
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Session/JWT primitives =====

// The job board's main API issues HS256 tokens with the user id in the
// subject claim and an optional role; this service only verifies them.

type userClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AuthManager struct {
	secret []byte
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

type ctxKeyUserID struct{}

// UserID returns the authenticated user id stored by RequireUser.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID{}).(string)
	return id
}

func (a *AuthManager) parse(tok string) (*userClaims, error) {
	claims := &userClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

func (a *AuthManager) fromRequest(r *http.Request) (*userClaims, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" || !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return nil, errors.New("missing bearer token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

// RequireUser authenticates the request via Authorization: Bearer <jwt> and
// stores the user id on the context.
func (a *AuthManager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.fromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin additionally demands the "admin" role claim.
func (a *AuthManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.fromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != "admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
