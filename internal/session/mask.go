package session

import "strings"

// Mask маскирует токен в логах (полный токен не светить).
func Mask(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "***"
}
