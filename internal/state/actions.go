package state

import "github.com/cloudchat/internal/model"

// Action — типизированное изменение состояния. Набор действий закрыт этим пакетом.
type Action interface {
	apply(st *State) bool
}

// LoggedIn открывает сессию и начинает новую эпоху с пустыми списками.
type LoggedIn struct {
	Session model.Session
}

func (a LoggedIn) apply(st *State) bool {
	sess := a.Session
	*st = State{Session: &sess, Epoch: st.Epoch + 1}
	return true
}

// LoggedOut закрывает сессию и очищает кеши.
type LoggedOut struct{}

func (LoggedOut) apply(st *State) bool {
	*st = State{Epoch: st.Epoch + 1}
	return true
}

// SentLoaded заменяет список отправленных. Epoch: эпоха, в которой начата загрузка.
type SentLoaded struct {
	Epoch    uint64
	Messages []model.Message
}

func (a SentLoaded) apply(st *State) bool {
	if a.Epoch != st.Epoch || !st.LoggedIn() {
		return false
	}
	st.Sent = cloneMessages(a.Messages)
	return true
}

// ReceivedLoaded заменяет список полученных.
type ReceivedLoaded struct {
	Epoch    uint64
	Messages []model.Message
}

func (a ReceivedLoaded) apply(st *State) bool {
	if a.Epoch != st.Epoch || !st.LoggedIn() {
		return false
	}
	st.Received = cloneMessages(a.Messages)
	return true
}

// MessageRead отражает подтверждённую сервером отметку о прочтении.
type MessageRead struct {
	ID int64
}

func (a MessageRead) apply(st *State) bool {
	changed := false
	for i := range st.Received {
		if st.Received[i].ID == a.ID && !st.Received[i].Read {
			st.Received[i].Read = true
			changed = true
		}
	}
	return changed
}

// NotificationsLoaded заменяет кеш уведомлений.
type NotificationsLoaded struct {
	Epoch   uint64
	Records []model.NotificationRecord
}

func (a NotificationsLoaded) apply(st *State) bool {
	if a.Epoch != st.Epoch || !st.LoggedIn() {
		return false
	}
	st.Notifications = cloneNotifications(a.Records)
	return true
}

// NotificationUpdated заменяет запись с тем же notificationId ответом сервиса.
type NotificationUpdated struct {
	Record model.NotificationRecord
}

func (a NotificationUpdated) apply(st *State) bool {
	changed := false
	for i := range st.Notifications {
		if st.Notifications[i].NotificationID == a.Record.NotificationID {
			st.Notifications[i] = cloneNotification(a.Record)
			changed = true
		}
	}
	return changed
}

// Highlighted выделяет сообщение.
type Highlighted struct {
	MessageID int64
}

func (a Highlighted) apply(st *State) bool {
	id := a.MessageID
	st.HighlightedMessageID = &id
	return true
}

// HighlightCleared снимает выделение (клик по карточке сообщения).
type HighlightCleared struct{}

func (HighlightCleared) apply(st *State) bool {
	if st.HighlightedMessageID == nil {
		return false
	}
	st.HighlightedMessageID = nil
	return true
}

// PanelToggled: closed -> open, open -> closed.
type PanelToggled struct{}

func (PanelToggled) apply(st *State) bool {
	st.PanelOpen = !st.PanelOpen
	return true
}

// PanelDismissed закрывает панель (аналог клика вне неё). Закрытая панель не меняется.
type PanelDismissed struct{}

func (PanelDismissed) apply(st *State) bool {
	if !st.PanelOpen {
		return false
	}
	st.PanelOpen = false
	return true
}
