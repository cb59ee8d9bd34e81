// Package notifications — кеш уведомлений, периодический опрос, счётчик
// непрочитанных и состояние панели колокольчика.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/poller"
	"github.com/cloudchat/internal/state"
)

// API — вызовы сервиса уведомлений.
type API interface {
	History(ctx context.Context, token string) ([]model.NotificationRecord, error)
	MarkAsRead(ctx context.Context, token, notificationID string) (*model.NotificationRecord, error)
}

// Feed опрашивает историю уведомлений и хранит её в state.Store.
type Feed struct {
	api      API
	store    *state.Store
	interval time.Duration

	mu   sync.Mutex
	task *poller.Task
}

func New(api API, store *state.Store, interval time.Duration) *Feed {
	return &Feed{api: api, store: store, interval: interval}
}

// Refresh загружает историю и сортирует по убыванию timestamp.
// При ошибке кеш очищается: панель показывает пустой список, а не устаревший.
func (f *Feed) Refresh(ctx context.Context) error {
	sess, epoch, err := f.store.RequireSession()
	if err != nil {
		return err
	}
	recs, err := f.api.History(ctx, sess.Token)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.Errorf("notifications: fetch history: %v", err)
		f.store.Dispatch(state.NotificationsLoaded{Epoch: epoch, Records: []model.NotificationRecord{}})
		return err
	}
	model.SortByTimestampDesc(recs)
	if !f.store.Dispatch(state.NotificationsLoaded{Epoch: epoch, Records: recs}) {
		logger.Debugf("notifications: stale history dropped (epoch %d)", epoch)
	}
	return nil
}

// StartPolling загружает историю сразу и затем каждые interval.
func (f *Feed) StartPolling(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.task != nil && f.task.Running() {
		return
	}
	f.task = poller.New(f.interval, func(ctx context.Context) {
		_ = f.Refresh(ctx)
	})
	f.task.Start(ctx)
}

// StopPolling останавливает опрос и ждёт завершения текущего запроса.
func (f *Feed) StopPolling() {
	f.mu.Lock()
	task := f.task
	f.task = nil
	f.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// MarkRead помечает уведомление прочитанным и заменяет запись в кеше ответом сервиса.
func (f *Feed) MarkRead(ctx context.Context, notificationID string) (*model.NotificationRecord, error) {
	sess, _, err := f.store.RequireSession()
	if err != nil {
		return nil, err
	}
	rec, err := f.api.MarkAsRead(ctx, sess.Token, notificationID)
	if err != nil {
		return nil, err
	}
	f.store.Dispatch(state.NotificationUpdated{Record: *rec})
	return rec, nil
}

// Find ищет уведомление в кеше.
func (f *Feed) Find(notificationID string) (model.NotificationRecord, bool) {
	for _, n := range f.store.Notifications() {
		if n.NotificationID == notificationID {
			return n, true
		}
	}
	return model.NotificationRecord{}, false
}

// UnreadCount — число непрочитанных уведомлений username (значок на колокольчике).
func (f *Feed) UnreadCount(username string) int {
	return UnreadCount(f.store.Notifications(), username)
}

// TogglePanel открывает закрытую панель и закрывает открытую.
func (f *Feed) TogglePanel() bool {
	f.store.Dispatch(state.PanelToggled{})
	return f.store.Snapshot().PanelOpen
}

// DismissPanel закрывает панель (фокус ушёл с колокольчика).
func (f *Feed) DismissPanel() {
	f.store.Dispatch(state.PanelDismissed{})
}

// UnreadCount считает записи username с readNotification == false.
func UnreadCount(recs []model.NotificationRecord, username string) int {
	n := 0
	for i := range recs {
		if recs[i].UserID == username && !recs[i].ReadNotification {
			n++
		}
	}
	return n
}

// ForUser оставляет только уведомления username; порядок сохраняется.
func ForUser(recs []model.NotificationRecord, username string) []model.NotificationRecord {
	out := make([]model.NotificationRecord, 0, len(recs))
	for _, r := range recs {
		if r.UserID == username {
			out = append(out, r)
		}
	}
	return out
}
