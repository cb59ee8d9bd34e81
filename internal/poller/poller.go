// Package poller — периодическая задача с явной остановкой.
package poller

import (
	"context"
	"sync"
	"time"
)

// Task вызывает fn сразу после Start и затем на каждом тике interval.
// Вызовы fn не перекрываются: следующий тик ждёт завершения предыдущего вызова.
type Task struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(interval time.Duration, fn func(ctx context.Context)) *Task {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Task{interval: interval, fn: fn}
}

// Start запускает цикл. Повторный Start у запущенной задачи ничего не делает.
// Контекст fn отменяется при Stop или отмене parent.
func (t *Task) Start(parent context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.alive() {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true
	go t.run(ctx, t.done)
}

func (t *Task) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx)
		}
	}
}

// Stop отменяет цикл и ждёт выхода горутины. Безопасно вызывать повторно.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done
}

// Running сообщает, работает ли цикл. После отмены parent задача не работает.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive()
}

func (t *Task) alive() bool {
	if !t.running {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
