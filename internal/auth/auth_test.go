package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "unit-test-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssuer_SignAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	token, err := issuer.Sign("user-123")
	require.NoError(t, err)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	signer := NewIssuer(testSecret, time.Hour, WithClock(fixedClock(issuedAt)))
	token, err := signer.Sign("user-123")
	require.NoError(t, err)

	later := NewIssuer(testSecret, time.Hour, WithClock(fixedClock(issuedAt.Add(2*time.Hour))))
	_, err = later.Parse(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssuer_RejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("other-secret", time.Hour).Sign("user-123")
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestIssuer_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID:           "user-123",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestIssuer_RequiresUserIDClaim(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour).Parse(token)
	assert.ErrorContains(t, err, "missing userId")
}

func TestIssuer_Disabled(t *testing.T) {
	issuer := NewIssuer("", time.Hour)
	assert.False(t, issuer.Enabled())

	_, err := issuer.Sign("user-123")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = issuer.Parse("anything")
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = NewIssuer(testSecret, time.Hour).Sign("  ")
	assert.Error(t, err)
}

func TestOptionalAuth(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	valid, err := issuer.Sign("user-9")
	require.NoError(t, err)

	var seen string
	handler := OptionalAuth(issuer, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "valid bearer token", header: "Bearer " + valid, want: "user-9"},
		{name: "lowercase scheme", header: "bearer " + valid, want: "user-9"},
		{name: "no header", header: "", want: ""},
		{name: "garbage token", header: "Bearer not.a.token", want: ""},
		{name: "wrong scheme", header: "Basic " + valid, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = "unset"
			req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code, "invalid tokens never block the request")
			assert.Equal(t, tt.want, seen)
		})
	}
}
