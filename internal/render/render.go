// Package render выводит состояние клиента в терминал.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/notifications"
	"github.com/cloudchat/internal/state"
)

var strict = bluemonday.StrictPolicy()

// Text убирает разметку и управляющие символы из текста сервиса.
func Text(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// TimeLayout — формат времени уведомлений.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp форматирует миллисекунды Unix в локальное время.
func Timestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format(TimeLayout)
}

// Header — приветствие и значок непрочитанных.
func Header(w io.Writer, st state.State) {
	if !st.LoggedIn() {
		fmt.Fprintln(w, "Not logged in. Use: register <user> <password> | login <user> <password>")
		return
	}
	user := st.Session.Username
	badge := ""
	if n := notifications.UnreadCount(st.Notifications, user); n > 0 {
		badge = fmt.Sprintf(" (%d)", n)
	}
	fmt.Fprintf(w, "Welcome, %s!  [bell%s]\n", Text(user), badge)
}

// Received — полученные сообщения: * непрочитанное, >> подсвеченное.
func Received(w io.Writer, st state.State, downloadURL func(string) string) {
	fmt.Fprintln(w, "Received Messages")
	if len(st.Received) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i := range st.Received {
		m := &st.Received[i]
		mark := "  "
		if st.HighlightedMessageID != nil && *st.HighlightedMessageID == m.ID {
			mark = ">>"
		}
		unread := " "
		if !m.Read {
			unread = "*"
		}
		fmt.Fprintf(w, "%s%s #%d %s: %s\n", mark, unread, m.ID, Text(m.AuthorUsername), Text(m.Content))
		if m.HasFile() {
			fmt.Fprintf(w, "      file: %s\n", attachment(*m.FileID, downloadURL))
		}
	}
}

// Sent — отправленные сообщения; без получателя — Broadcast.
func Sent(w io.Writer, st state.State, downloadURL func(string) string) {
	fmt.Fprintln(w, "Sent Messages")
	if len(st.Sent) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i := range st.Sent {
		m := &st.Sent[i]
		to := m.Recipient()
		if to == "" {
			to = "Broadcast"
		}
		fmt.Fprintf(w, "   #%d -> %s: %s\n", m.ID, Text(to), Text(m.Content))
		if m.HasFile() {
			fmt.Fprintf(w, "      file: %s\n", attachment(*m.FileID, downloadURL))
		}
	}
}

func attachment(fileID string, downloadURL func(string) string) string {
	if downloadURL != nil {
		if u := downloadURL(fileID); u != "" {
			return u
		}
	}
	return fileID
}

// Panel — панель уведомлений текущего пользователя. Закрытая панель не выводится.
func Panel(w io.Writer, st state.State) {
	if !st.PanelOpen || !st.LoggedIn() {
		return
	}
	recs := notifications.ForUser(st.Notifications, st.Session.Username)
	if len(recs) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	for i := range recs {
		n := &recs[i]
		unread := " "
		if !n.ReadNotification {
			unread = "*"
		}
		fmt.Fprintf(w, "%s %s %s  %s  (%s)\n", unread, icon(model.KindOf(n.Type)), n.NotificationID, Text(n.Message), Timestamp(n.Timestamp))
	}
}

func icon(k model.Kind) string {
	switch k {
	case model.KindMessage:
		return "[msg] "
	case model.KindFile:
		return "[file]"
	default:
		return "[bell]"
	}
}
