package middleware

import "context"

type contextKey string

const UsernameKey contextKey = "username"

// GetUsername возвращает имя пользователя из контекста (устанавливает BearerAuth).
func GetUsername(ctx context.Context) string {
	v, _ := ctx.Value(UsernameKey).(string)
	return v
}

// WithUsername кладёт имя пользователя в контекст.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}
