package model

import "sort"

// Message — сообщение чат-сервиса. recipientUsername и fileId могут быть null.
type Message struct {
	ID                int64   `json:"id"`
	AuthorUsername    string  `json:"authorUsername"`
	RecipientUsername *string `json:"recipientUsername"`
	Content           string  `json:"content"`
	FileID            *string `json:"fileId,omitempty"`
	Read              bool    `json:"read"`
}

// Recipient возвращает получателя или "" для сообщения без адресата.
func (m *Message) Recipient() string {
	if m.RecipientUsername == nil {
		return ""
	}
	return *m.RecipientUsername
}

// HasFile сообщает, есть ли у сообщения вложение.
func (m *Message) HasFile() bool {
	return m.FileID != nil && *m.FileID != ""
}

// SendMessageRequest — тело POST на чат-сервис.
type SendMessageRequest struct {
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	Recipient string  `json:"recipient"`
	FileID    *string `json:"fileId"`
}

// SortByIDDesc сортирует сообщения от новых к старым (по убыванию id).
func SortByIDDesc(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
}

// StringPtr — вспомогательная функция для опциональных полей.
func StringPtr(s string) *string {
	return &s
}
