package realtime

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BearBump/CargoDock/internal/apperrors"
)

// Authenticator проверяет bearer-токен рукопожатия.
// Отсутствие токена — это гость, а не отказ: порталу нужны анонимные
// наблюдатели. Невалидный токен, наоборот, отклоняет само соединение.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string, now func() time.Time) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{secret: []byte(secret), now: now}
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (a *Authenticator) Authenticate(credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return GuestIdentity(), nil
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Identity{}, &apperrors.AuthenticationError{Reason: err.Error()}
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Identity{}, &apperrors.AuthenticationError{Reason: "token has no subject"}
	}
	role := strings.TrimSpace(claims.Role)
	switch role {
	case RoleUser, RoleAdmin, RoleSupplier:
	case "":
		role = RoleUser
	default:
		return Identity{}, &apperrors.AuthenticationError{Reason: "unknown role " + role}
	}

	return Identity{UserID: userID, Role: role}, nil
}
