// Package reconcile сводит два независимых флага прочтения: read у сообщения
// чат-сервиса и readNotification у записи сервиса уведомлений.
// Уведомление связано с сообщением, если его relatedEntityId равен строковому id сообщения.
// Атомарности нет: при частичной ошибке сервисы временно расходятся, отката нет.
package reconcile

import (
	"context"
	"strconv"

	"github.com/cloudchat/internal/config"
	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/state"
)

// Messages — операции списка сообщений (inbox.Inbox).
type Messages interface {
	MarkRead(ctx context.Context, messageID int64) error
	IsRead(messageID int64) bool
}

// Notifications — операции кеша уведомлений (notifications.Feed).
type Notifications interface {
	MarkRead(ctx context.Context, notificationID string) (*model.NotificationRecord, error)
}

// Policy — сколько непрочитанных уведомлений с одним relatedEntityId помечать
// при прочтении сообщения.
type Policy int

const (
	// FirstMatch — только первое совпадение в порядке кеша (новые первыми).
	// Остальные дубликаты остаются непрочитанными.
	FirstMatch Policy = iota
	// AllMatches — все совпадения.
	AllMatches
)

// PolicyFromConfig переводит reconcile_policy из конфига.
func PolicyFromConfig(s string) Policy {
	if s == config.PolicyAllMatches {
		return AllMatches
	}
	return FirstMatch
}

// Coordinator распространяет отметку о прочтении между сервисами.
type Coordinator struct {
	messages      Messages
	notifications Notifications
	store         *state.Store
	policy        Policy
}

func New(messages Messages, notifications Notifications, store *state.Store, policy Policy) *Coordinator {
	return &Coordinator{messages: messages, notifications: notifications, store: store, policy: policy}
}

// MarkNotificationRead помечает уведомление, а затем связанное сообщение (один вызов чат-сервиса).
// false, если не удалось пометить само уведомление. Ошибка пометки сообщения
// логируется, но результат остаётся true.
func (c *Coordinator) MarkNotificationRead(ctx context.Context, notificationID string) bool {
	return c.markNotification(ctx, notificationID, nil)
}

// markNotification: skipMessage уже помечено вызывающим, повторный вызов чат-сервиса не делается.
func (c *Coordinator) markNotification(ctx context.Context, notificationID string, skipMessage *int64) bool {
	rec, err := c.notifications.MarkRead(ctx, notificationID)
	if err != nil {
		logger.Errorf("reconcile: mark notification %s as read: %v", notificationID, err)
		return false
	}
	logger.Infof("reconcile: notification %s marked as read (read=%t)", notificationID, rec.ReadNotification)

	related, ok := rec.Related()
	if !rec.ReadNotification || !ok {
		return true
	}
	messageID, err := strconv.ParseInt(related, 10, 64)
	if err != nil {
		logger.Errorf("reconcile: notification %s has non-numeric relatedEntityId %q", notificationID, related)
		return true
	}
	if skipMessage != nil && *skipMessage == messageID {
		return true
	}
	if err := c.messages.MarkRead(ctx, messageID); err != nil {
		logger.Errorf("reconcile: notification %s read, but message %d was not: %v", notificationID, messageID, err)
		return true
	}
	logger.Infof("reconcile: message %d marked as read via notification %s", messageID, notificationID)
	return true
}

// MarkChatMessageRead помечает сообщение и затем непрочитанные уведомления о нём (по политике).
// Сообщение, уже прочитанное в кеше, не отправляется повторно.
func (c *Coordinator) MarkChatMessageRead(ctx context.Context, messageID int64) bool {
	if c.messages.IsRead(messageID) {
		logger.Debugf("reconcile: message %d already read", messageID)
		return true
	}
	if err := c.messages.MarkRead(ctx, messageID); err != nil {
		logger.Errorf("reconcile: mark message %d as read: %v", messageID, err)
		return false
	}

	matches := Matching(c.store.Notifications(), messageID, c.policy)
	if len(matches) == 0 {
		logger.Debugf("reconcile: no unread notification for message %d", messageID)
		return true
	}
	for _, n := range matches {
		c.markNotification(ctx, n.NotificationID, &messageID)
	}
	return true
}

// HandleNotificationClick обрабатывает клик по уведомлению в панели: пометить (если не прочитано)
// и подсветить связанное сообщение.
func (c *Coordinator) HandleNotificationClick(ctx context.Context, rec model.NotificationRecord) bool {
	ok := true
	if !rec.ReadNotification {
		ok = c.MarkNotificationRead(ctx, rec.NotificationID)
	}
	if !ok {
		return false
	}
	related, has := rec.Related()
	if !has {
		return true
	}
	messageID, err := strconv.ParseInt(related, 10, 64)
	if err != nil {
		logger.Errorf("reconcile: cannot highlight message %q: %v", related, err)
		return true
	}
	c.store.Dispatch(state.Highlighted{MessageID: messageID})
	return true
}

// ClearHighlight снимает подсветку (следующий клик по карточке сообщения).
func (c *Coordinator) ClearHighlight() {
	c.store.Dispatch(state.HighlightCleared{})
}

// Matching возвращает непрочитанные уведомления, у которых relatedEntityId
// побайтно равен десятичной записи messageID ("042" не совпадает с 42).
func Matching(recs []model.NotificationRecord, messageID int64, policy Policy) []model.NotificationRecord {
	want := strconv.FormatInt(messageID, 10)
	var out []model.NotificationRecord
	for _, n := range recs {
		related, ok := n.Related()
		if !ok || n.ReadNotification || related != want {
			continue
		}
		out = append(out, n)
		if policy == FirstMatch {
			break
		}
	}
	return out
}
