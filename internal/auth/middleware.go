package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/navikt/helse-spokelse-sub000/pkg/response"
)

// Roles authorized per endpoint.
const (
	RoleReadPayouts = "payout-read"
	RoleReadBasis   = "basis-read"
)

// Require enforces bearer-token authentication plus one required role before
// any business logic runs.
func Require(secret string, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Unauthorized(w, "missing bearer token")
				return
			}

			raw := strings.TrimPrefix(header, "Bearer ")
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid bearer token")
				return
			}

			if !hasRole(claims, role) {
				response.Forbidden(w, "missing required role "+role)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(claims jwt.MapClaims, role string) bool {
	raw, ok := claims["roles"]
	if !ok {
		return false
	}
	list, ok := raw.([]interface{})
	if !ok {
		return false
	}
	for _, entry := range list {
		if s, ok := entry.(string); ok && s == role {
			return true
		}
	}
	return false
}
