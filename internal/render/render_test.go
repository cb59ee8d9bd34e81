package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/state"
)

func TestText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<b>bold</b> move", "bold move"},
		{"<script>alert(1)</script>hi", "hi"},
		{"tom &amp; jerry", "tom & jerry"},
		{"line\nbreak", "line break"},
		{"bell\x07", "bell"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func loggedIn(user string) state.State {
	return state.State{Session: &model.Session{Token: "t", Username: user}}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, state.State{})
	if !strings.HasPrefix(buf.String(), "Not logged in") {
		t.Errorf("anonymous header = %q", buf.String())
	}

	st := loggedIn("alice")
	st.Notifications = []model.NotificationRecord{
		{NotificationID: "1", UserID: "alice"},
		{NotificationID: "2", UserID: "alice", ReadNotification: true},
		{NotificationID: "3", UserID: "bob"},
	}
	buf.Reset()
	Header(&buf, st)
	if got := buf.String(); got != "Welcome, alice!  [bell (1)]\n" {
		t.Errorf("header = %q", got)
	}
}

func TestReceivedMarks(t *testing.T) {
	st := loggedIn("alice")
	hl := int64(2)
	st.HighlightedMessageID = &hl
	st.Received = []model.Message{
		{ID: 2, AuthorUsername: "bob", Content: "hi", FileID: model.StringPtr("f1")},
		{ID: 1, AuthorUsername: "bob", Content: "old", Read: true},
	}
	var buf bytes.Buffer
	Received(&buf, st, func(id string) string { return "http://files/" + id })
	out := buf.String()
	for _, want := range []string{">>* #2 bob: hi", "   #1 bob: old", "file: http://files/f1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSentBroadcast(t *testing.T) {
	st := loggedIn("alice")
	st.Sent = []model.Message{
		{ID: 3, AuthorUsername: "alice", Content: "all"},
		{ID: 2, AuthorUsername: "alice", Content: "one", RecipientUsername: model.StringPtr("bob")},
	}
	var buf bytes.Buffer
	Sent(&buf, st, nil)
	out := buf.String()
	if !strings.Contains(out, "#3 -> Broadcast: all") || !strings.Contains(out, "#2 -> bob: one") {
		t.Errorf("sent output:\n%s", out)
	}
}

func TestPanel(t *testing.T) {
	st := loggedIn("alice")
	var buf bytes.Buffer
	Panel(&buf, st)
	if buf.Len() != 0 {
		t.Errorf("closed panel printed %q", buf.String())
	}

	st.PanelOpen = true
	Panel(&buf, st)
	if buf.String() != "No notifications.\n" {
		t.Errorf("empty panel = %q", buf.String())
	}

	st.Notifications = []model.NotificationRecord{
		{NotificationID: "n1", UserID: "alice", Type: model.NotificationNewMessageWithFile, Message: "with file"},
		{NotificationID: "n2", UserID: "alice", Type: "FILE_SHARED", Message: "shared", ReadNotification: true},
		{NotificationID: "n3", UserID: "alice", Type: "SYSTEM", Message: "system"},
		{NotificationID: "n4", UserID: "bob", Type: "SYSTEM", Message: "not mine"},
	}
	buf.Reset()
	Panel(&buf, st)
	out := buf.String()
	for _, want := range []string{"* [msg]  n1", "  [file] n2", "* [bell] n3"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "not mine") {
		t.Errorf("panel shows foreign notification:\n%s", out)
	}
}
