package model

import "time"

// AuthRequest — тело /login и /register.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse — ответ /login. Token — запасное поле старых версий auth-сервиса.
type TokenResponse struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	Token        string `json:"token,omitempty"`
}

// BearerToken возвращает токен для заголовка Authorization.
func (t *TokenResponse) BearerToken() string {
	if t.IDToken != "" {
		return t.IDToken
	}
	return t.Token
}

// User — учётная запись devstack auth.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
