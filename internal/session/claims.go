// Package session работает с bearer-токенами: разбор claims на клиенте,
// выпуск и проверка HS256-токенов в devstack.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cloudchat/internal/model"
)

// ErrNoUsername — в токене нет ни username, ни cognito:username.
var ErrNoUsername = errors.New("token has no username claim")

// Claims — поля токена, которые нужны клиенту и devstack.
type Claims struct {
	Username string
	Subject  string
	Expires  time.Time
}

type tokenClaims struct {
	Username        string `json:"username,omitempty"`
	CognitoUsername string `json:"cognito:username,omitempty"`
	jwt.RegisteredClaims
}

func (c *tokenClaims) toClaims() Claims {
	out := Claims{Username: c.Username, Subject: c.Subject}
	if out.Username == "" {
		out.Username = c.CognitoUsername
	}
	if c.ExpiresAt != nil {
		out.Expires = c.ExpiresAt.Time
	}
	return out
}

// ParseUnverified читает claims без проверки подписи: клиент не знает ключа,
// подпись проверяет сервис. Для непрозрачного (не JWT) токена возвращается ошибка.
func ParseUnverified(token string) (Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	return tc.toClaims(), nil
}

// New создаёт сессию после входа. Имя пользователя берётся из формы входа;
// срок действия берётся из exp, если токен разбирается.
func New(token, username string) *model.Session {
	s := &model.Session{Token: token, Username: username}
	if c, err := ParseUnverified(token); err == nil {
		s.ExpiresAt = c.Expires
	}
	return s
}

// Issue выпускает HS256-токен с claim username (devstack auth).
func Issue(username, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	tc := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cloudchat-devstack",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}

// Verify проверяет подпись и срок действия и возвращает claims.
func Verify(token, secret string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}
	c := tc.toClaims()
	if c.Username == "" {
		return Claims{}, ErrNoUsername
	}
	return c, nil
}
