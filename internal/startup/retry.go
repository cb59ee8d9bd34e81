// Package startup — подключение devstack к внешним хранилищам с повторами.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudchat/internal/logger"
)

// retry вызывает connect с экспоненциальной паузой (2s..30s), пока не истечёт maxWait или ctx.
func retry[T any](ctx context.Context, what string, maxWait time.Duration, connect func(context.Context) (T, error)) (T, error) {
	deadline := time.Now().Add(maxWait)
	backoff := 2 * time.Second
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		v, err := connect(attemptCtx)
		cancel()
		if err == nil {
			return v, nil
		}
		if time.Now().After(deadline) {
			var zero T
			return zero, fmt.Errorf("%s (gave up after %v): %w", what, maxWait, err)
		}
		logger.Errorf("%s failed, retry in %v: %v", what, backoff, err)
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
