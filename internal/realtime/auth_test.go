package realtime

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/CargoDock/internal/apperrors"
)

const testSecret = "test-secret"

var authNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, func() time.Time { return authNow })
}

func signToken(t *testing.T, secret, subject, role string, expiresAt time.Time) string {
	t.Helper()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// Отсутствие токена — гость, а не отказ.
func TestAuthenticator_NoCredentialIsGuest(t *testing.T) {
	a := newTestAuthenticator()

	id, err := a.Authenticate("")
	require.NoError(t, err)
	require.Equal(t, RoleGuest, id.Role)
	require.Empty(t, id.UserID)
}

func TestAuthenticator_ValidToken(t *testing.T) {
	a := newTestAuthenticator()
	token := signToken(t, testSecret, "user-42", RoleSupplier, authNow.Add(time.Hour))

	id, err := a.Authenticate(token)
	require.NoError(t, err)
	require.Equal(t, "user-42", id.UserID)
	require.Equal(t, RoleSupplier, id.Role)
}

func TestAuthenticator_DefaultRoleIsUser(t *testing.T) {
	a := newTestAuthenticator()
	token := signToken(t, testSecret, "user-42", "", authNow.Add(time.Hour))

	id, err := a.Authenticate(token)
	require.NoError(t, err)
	require.Equal(t, RoleUser, id.Role)
}

// Невалидный токен — это отказ, не даунгрейд до гостя.
func TestAuthenticator_InvalidTokenRejected(t *testing.T) {
	a := newTestAuthenticator()

	cases := map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": signToken(t, "other-secret", "user-42", RoleUser, authNow.Add(time.Hour)),
		"expired":      signToken(t, testSecret, "user-42", RoleUser, authNow.Add(-time.Hour)),
		"no subject":   signToken(t, testSecret, "", RoleUser, authNow.Add(time.Hour)),
		"unknown role": signToken(t, testSecret, "user-42", "superadmin", authNow.Add(time.Hour)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(token)
			var authErr *apperrors.AuthenticationError
			require.ErrorAs(t, err, &authErr)
		})
	}
}

func TestAuthenticator_RejectsUnexpectedAlgorithm(t *testing.T) {
	a := newTestAuthenticator()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-42"},
		Role:             RoleAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Authenticate(token)
	var authErr *apperrors.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}
