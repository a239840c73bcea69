package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, roles []string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "srvspokelse",
		"exp": expiresAt.Unix(),
	}
	if roles != nil {
		rs := make([]interface{}, len(roles))
		for i, r := range roles {
			rs[i] = r
		}
		claims["roles"] = rs
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequire(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
	}{
		{
			name:           "missing header",
			authorization:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not a bearer token",
			authorization:  "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			authorization:  "Bearer not.a.jwt",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong signing key",
			authorization:  "Bearer " + signToken(t, "other-secret", []string{RoleReadPayouts}, future),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authorization:  "Bearer " + signToken(t, testSecret, []string{RoleReadPayouts}, time.Now().Add(-time.Hour)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "no roles claim",
			authorization:  "Bearer " + signToken(t, testSecret, nil, future),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "wrong role",
			authorization:  "Bearer " + signToken(t, testSecret, []string{RoleReadBasis}, future),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "required role present",
			authorization:  "Bearer " + signToken(t, testSecret, []string{RoleReadBasis, RoleReadPayouts}, future),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := Require(testSecret, RoleReadPayouts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/payout-periods", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, reached)
		})
	}
}
