package model

import (
	"sort"
	"strings"
)

// Типы уведомлений, которые создаёт чат-сервис при новом сообщении.
const (
	NotificationNewMessage         = "NEW_MESSAGE"
	NotificationNewMessageWithFile = "NEW_MESSAGE_WITH_FILE"
)

// Статусы доставки уведомления.
const (
	NotificationStatusSent   = "SENT"
	NotificationStatusFailed = "FAILED"
)

// NotificationRecord — запись сервиса уведомлений.
// RelatedEntityID — строковый id сообщения чата, к которому относится уведомление.
type NotificationRecord struct {
	NotificationID   string  `json:"notificationId"`
	UserID           string  `json:"userId"`
	Type             string  `json:"type"`
	Message          string  `json:"message"`
	Timestamp        int64   `json:"timestamp"`
	Status           string  `json:"status"`
	ReadNotification bool    `json:"readNotification"`
	RelatedEntityID  *string `json:"relatedEntityId,omitempty"`
}

// Related возвращает relatedEntityId и признак его наличия (пустая строка = отсутствует).
func (n *NotificationRecord) Related() (string, bool) {
	if n.RelatedEntityID == nil || *n.RelatedEntityID == "" {
		return "", false
	}
	return *n.RelatedEntityID, true
}

// Kind — класс иконки уведомления в панели.
type Kind int

const (
	KindGeneric Kind = iota
	KindMessage
	KindFile
)

// KindOf классифицирует тип уведомления: MESSAGE проверяется раньше FILE,
// поэтому NEW_MESSAGE_WITH_FILE считается сообщением.
func KindOf(typ string) Kind {
	switch {
	case strings.Contains(typ, "MESSAGE"):
		return KindMessage
	case strings.Contains(typ, "FILE"):
		return KindFile
	default:
		return KindGeneric
	}
}

// SortByTimestampDesc сортирует уведомления от новых к старым.
func SortByTimestampDesc(recs []NotificationRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp > recs[j].Timestamp })
}
