package middleware

import (
	"net/http"
	"time"

	"github.com/cloudchat/internal/logger"
)

// RequestLog логирует method, path, статус и время выполнения запроса.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)
		logger.LogDuration("http "+r.Method+" "+r.URL.Path+" "+http.StatusText(wrap.status), start)
	})
}
