// Package state — контейнер состояния клиента: сессия, списки сообщений,
// кеш уведомлений, подсветка и панель. Изменяется только через Dispatch.
package state

import (
	"errors"
	"sync"

	"github.com/cloudchat/internal/model"
)

// ErrNoSession — операция требует входа.
var ErrNoSession = errors.New("not logged in")

// State — снимок состояния. Срезы в снимке принадлежат вызывающему.
type State struct {
	Session       *model.Session
	Sent          []model.Message
	Received      []model.Message
	Notifications []model.NotificationRecord
	// HighlightedMessageID — сообщение, выделенное после клика по уведомлению.
	HighlightedMessageID *int64
	PanelOpen            bool
	// Epoch растёт при каждом входе и выходе; загрузки из прошлой эпохи отбрасываются.
	Epoch uint64
}

// LoggedIn сообщает, есть ли активная сессия.
func (s *State) LoggedIn() bool {
	return s.Session != nil && s.Session.Token != ""
}

// Store хранит состояние и уведомляет подписчиков после каждого применённого действия.
type Store struct {
	mu        sync.RWMutex
	st        State
	listeners map[int]func(Action)
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Action))}
}

// Dispatch применяет действие. Возвращает false, если действие отброшено
// (например, загрузка из устаревшей эпохи).
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	applied := a.apply(&s.st)
	var fns []func(Action)
	if applied {
		fns = make([]func(Action), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(a)
	}
	return applied
}

// Subscribe регистрирует обработчик изменений; возвращённая функция снимает подписку.
// Обработчик вызывается вне блокировки и может читать Store.
func (s *Store) Subscribe(fn func(Action)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Snapshot возвращает глубокую копию состояния.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := State{
		Sent:          cloneMessages(s.st.Sent),
		Received:      cloneMessages(s.st.Received),
		Notifications: cloneNotifications(s.st.Notifications),
		PanelOpen:     s.st.PanelOpen,
		Epoch:         s.st.Epoch,
	}
	if s.st.Session != nil {
		sess := *s.st.Session
		out.Session = &sess
	}
	if s.st.HighlightedMessageID != nil {
		id := *s.st.HighlightedMessageID
		out.HighlightedMessageID = &id
	}
	return out
}

// Session возвращает копию сессии и текущую эпоху; nil, если вход не выполнен.
func (s *Store) Session() (*model.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.st.Session == nil {
		return nil, s.st.Epoch
	}
	sess := *s.st.Session
	return &sess, s.st.Epoch
}

// RequireSession работает как Session, но без сессии возвращает ErrNoSession.
func (s *Store) RequireSession() (*model.Session, uint64, error) {
	sess, epoch := s.Session()
	if sess == nil || sess.Token == "" {
		return nil, epoch, ErrNoSession
	}
	return sess, epoch, nil
}

// Notifications возвращает копию кеша уведомлений.
func (s *Store) Notifications() []model.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNotifications(s.st.Notifications)
}

// ReceivedMessage ищет сообщение в кеше полученных.
func (s *Store) ReceivedMessage(id int64) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.st.Received {
		if m.ID == id {
			return cloneMessage(m), true
		}
	}
	return model.Message{}, false
}

func cloneMessage(m model.Message) model.Message {
	if m.RecipientUsername != nil {
		m.RecipientUsername = model.StringPtr(*m.RecipientUsername)
	}
	if m.FileID != nil {
		m.FileID = model.StringPtr(*m.FileID)
	}
	return m
}

func cloneMessages(in []model.Message) []model.Message {
	if in == nil {
		return nil
	}
	out := make([]model.Message, len(in))
	for i, m := range in {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneNotification(n model.NotificationRecord) model.NotificationRecord {
	if n.RelatedEntityID != nil {
		n.RelatedEntityID = model.StringPtr(*n.RelatedEntityID)
	}
	return n
}

func cloneNotifications(in []model.NotificationRecord) []model.NotificationRecord {
	if in == nil {
		return nil
	}
	out := make([]model.NotificationRecord, len(in))
	for i, n := range in {
		out[i] = cloneNotification(n)
	}
	return out
}
