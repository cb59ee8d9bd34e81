package middleware

import (
	"net/http"
	"strings"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/session"
)

// BearerAuth проверяет заголовок Authorization: Bearer <jwt> подписью secret
// и кладёт username из токена в контекст.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w)
				return
			}
			claims, err := session.Verify(strings.TrimSpace(token), secret)
			if err != nil {
				logger.Debugf("auth: reject %s: %v", session.Mask(token), err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), claims.Username)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
