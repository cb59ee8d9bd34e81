package repository

import (
	"context"
	"sync"

	"github.com/cloudchat/internal/model"
)

// MemoryMessages — MessageStore в памяти (devstack без DATABASE_URL).
type MemoryMessages struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*model.Message
	order  []int64
}

func NewMemoryMessages() *MemoryMessages {
	return &MemoryMessages{byID: make(map[int64]*model.Message)}
}

func copyMessage(m *model.Message) model.Message {
	c := *m
	if m.RecipientUsername != nil {
		c.RecipientUsername = model.StringPtr(*m.RecipientUsername)
	}
	if m.FileID != nil {
		c.FileID = model.StringPtr(*m.FileID)
	}
	return c
}

func (s *MemoryMessages) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	c := copyMessage(m)
	s.byID[m.ID] = &c
	s.order = append(s.order, m.ID)
	return nil
}

func (s *MemoryMessages) GetByID(_ context.Context, id int64) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyMessage(m)
	return &c, nil
}

func (s *MemoryMessages) ListSent(_ context.Context, author string) ([]model.Message, error) {
	return s.filter(func(m *model.Message) bool { return m.AuthorUsername == author }), nil
}

func (s *MemoryMessages) ListReceived(_ context.Context, recipient string) ([]model.Message, error) {
	return s.filter(func(m *model.Message) bool { return m.Recipient() == recipient }), nil
}

// filter возвращает сообщения по убыванию id.
func (s *MemoryMessages) filter(keep func(*model.Message) bool) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if m := s.byID[s.order[i]]; keep(m) {
			out = append(out, copyMessage(m))
		}
	}
	return out
}

func (s *MemoryMessages) MarkRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.Read = true
	return nil
}

// MemoryUsers — UserStore в памяти.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]model.User)}
}

func (s *MemoryUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ErrExists
	}
	s.users[u.Username] = *u
	return nil
}

func (s *MemoryUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
