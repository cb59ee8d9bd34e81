package model

import "time"

// Session — сессия клиента после входа. Живёт, пока жив процесс.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // нулевое значение — срок неизвестен
}

// Valid сообщает, что сессия есть и (если срок известен) не истекла.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}
