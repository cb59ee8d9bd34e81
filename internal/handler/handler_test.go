package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cloudchat/internal/apiclient"
	"github.com/cloudchat/internal/fileserver"
	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/repository"
	"github.com/cloudchat/internal/storage/memory"
)

type devstack struct {
	srv    *httptest.Server
	auth   *apiclient.AuthClient
	chat   *apiclient.ChatClient
	files  *apiclient.FileClient
	notifs *apiclient.NotificationClient
}

func newDevstack(t *testing.T) *devstack {
	t.Helper()
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Users:         repository.NewMemoryUsers(),
		Messages:      repository.NewMemoryMessages(),
		Notifications: memory.New(),
		Files:         fileserver.New(t.TempDir(), 1<<20),
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		CORSOrigins:   "*",
	}))
	t.Cleanup(srv.Close)
	return &devstack{
		srv:    srv,
		auth:   apiclient.NewAuthClient(srv.URL+"/api/auth", srv.Client()),
		chat:   apiclient.NewChatClient(srv.URL+"/api/messages", srv.Client()),
		files:  apiclient.NewFileClient(srv.URL+"/api/files", srv.Client()),
		notifs: apiclient.NewNotificationClient(srv.URL+"/api/notifications", srv.Client()),
	}
}

// user регистрирует и логинит пользователя, возвращает bearer-токен.
func (d *devstack) user(t *testing.T, name string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := d.auth.Register(ctx, name, "pw-"+name); err != nil {
		t.Fatalf("register %s: %+v", name, err)
	}
	tokens, err := d.auth.Login(ctx, name, "pw-"+name)
	if err != nil {
		t.Fatalf("login %s: %+v", name, err)
	}
	return tokens.BearerToken()
}

func TestAuth(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()

	msg, err := d.auth.Register(ctx, "alice", "secret")
	if err != nil || !strings.HasPrefix(msg, "Registration successful") {
		t.Fatalf("Register() = %q, %v", msg, err)
	}
	if _, err := d.auth.Register(ctx, "alice", "other"); apiclient.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("duplicate register err = %v, want 400", err)
	}

	tests := []struct {
		name     string
		user, pw string
		want     int
	}{
		{"valid", "alice", "secret", 0},
		{"wrong password", "alice", "nope", http.StatusUnauthorized},
		{"unknown user", "bob", "secret", http.StatusUnauthorized},
		{"empty", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := d.auth.Login(ctx, tt.user, tt.pw)
			if got := apiclient.StatusOf(err); got != tt.want {
				t.Fatalf("Login() status = %d (%v), want %d", got, err, tt.want)
			}
			if tt.want == 0 && (tokens.IDToken == "" || tokens.TokenType != "Bearer") {
				t.Errorf("tokens = %+v", tokens)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()

	if _, err := d.chat.Received(ctx, "", "alice"); apiclient.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("received without token err = %v", err)
	}
	if _, err := d.notifs.History(ctx, "forged.token.value"); apiclient.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("history with bad token err = %v", err)
	}
}

func TestMessageFlowCreatesNotification(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()
	alice, bob := d.user(t, "alice"), d.user(t, "bob")

	saved, err := d.chat.Send(ctx, alice, model.SendMessageRequest{Author: "alice", Content: "hi bob", Recipient: "bob"})
	if err != nil {
		t.Fatalf("Send: %+v", err)
	}
	if saved.ID == 0 || saved.AuthorUsername != "alice" || saved.Read {
		t.Fatalf("saved = %+v", saved)
	}

	recv, err := d.chat.Received(ctx, bob, "bob")
	if err != nil || len(recv) != 1 || recv[0].ID != saved.ID {
		t.Fatalf("Received(bob) = %+v, %v", recv, err)
	}
	sent, _ := d.chat.Sent(ctx, alice, "alice")
	if len(sent) != 1 {
		t.Errorf("Sent(alice) = %+v", sent)
	}
	if _, err := d.chat.Received(ctx, alice, "bob"); apiclient.StatusOf(err) != http.StatusForbidden {
		t.Errorf("alice reading bob's inbox err = %v, want 403", err)
	}

	hist, err := d.notifs.History(ctx, bob)
	if err != nil || len(hist) != 1 {
		t.Fatalf("History(bob) = %+v, %v", hist, err)
	}
	n := hist[0]
	if related, _ := n.Related(); related != strconv.FormatInt(saved.ID, 10) {
		t.Errorf("relatedEntityId = %q, want %d", related, saved.ID)
	}
	if n.Type != model.NotificationNewMessage || n.UserID != "bob" || n.Status != model.NotificationStatusSent {
		t.Errorf("notification = %+v", n)
	}
	if !strings.Contains(n.Message, "alice") || !strings.Contains(n.Message, "hi bob") {
		t.Errorf("notification message = %q", n.Message)
	}

	if own, _ := d.notifs.History(ctx, alice); len(own) != 0 {
		t.Errorf("author got notifications: %+v", own)
	}
}

func TestNoNotificationForSelfOrBroadcast(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()
	alice := d.user(t, "alice")

	d.chat.Send(ctx, alice, model.SendMessageRequest{Content: "note to self", Recipient: "alice"})
	d.chat.Send(ctx, alice, model.SendMessageRequest{Content: "everyone"})

	if hist, _ := d.notifs.History(ctx, alice); len(hist) != 0 {
		t.Errorf("notifications = %+v, want none", hist)
	}
}

func TestMessageMarkAsRead(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()
	alice, bob := d.user(t, "alice"), d.user(t, "bob")
	saved, _ := d.chat.Send(ctx, alice, model.SendMessageRequest{Content: "x", Recipient: "bob"})

	tests := []struct {
		name  string
		token string
		id    int64
		want  int
	}{
		{"not recipient", alice, saved.ID, http.StatusForbidden},
		{"missing", bob, 999, http.StatusNotFound},
		{"recipient", bob, saved.ID, 0},
		{"again", bob, saved.ID, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.chat.MarkAsRead(ctx, tt.token, tt.id)
			if got := apiclient.StatusOf(err); got != tt.want {
				t.Errorf("MarkAsRead() status = %d (%v), want %d", got, err, tt.want)
			}
		})
	}
	recv, _ := d.chat.Received(ctx, bob, "bob")
	if !recv[0].Read {
		t.Errorf("message not read after mark-as-read")
	}
}

func TestNotificationMarkAsRead(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()
	alice, bob := d.user(t, "alice"), d.user(t, "bob")
	d.chat.Send(ctx, alice, model.SendMessageRequest{Content: "x", Recipient: "bob"})
	hist, _ := d.notifs.History(ctx, bob)
	id := hist[0].NotificationID

	if _, err := d.notifs.MarkAsRead(ctx, alice, id); apiclient.StatusOf(err) != http.StatusForbidden {
		t.Errorf("foreign mark err = %v, want 403", err)
	}
	if _, err := d.notifs.MarkAsRead(ctx, bob, "missing"); apiclient.StatusOf(err) != http.StatusNotFound {
		t.Errorf("missing mark err = %v, want 404", err)
	}
	rec, err := d.notifs.MarkAsRead(ctx, bob, id)
	if err != nil || !rec.ReadNotification {
		t.Fatalf("MarkAsRead() = %+v, %v", rec, err)
	}
	if _, err := d.notifs.MarkAsRead(ctx, bob, id); apiclient.StatusOf(err) != http.StatusForbidden {
		t.Errorf("second mark err = %v, want 403 (already read)", err)
	}
}

func TestFiles(t *testing.T) {
	d := newDevstack(t)
	ctx := context.Background()
	alice, bob := d.user(t, "alice"), d.user(t, "bob")

	meta, err := d.files.Upload(ctx, alice, "report.txt", strings.NewReader("quarterly numbers"))
	if err != nil {
		t.Fatalf("Upload: %+v", err)
	}
	if meta.FileID == "" || meta.OriginalFilename != "report.txt" || meta.Size != 17 || meta.UploaderUsername != "alice" {
		t.Errorf("metadata = %+v", meta)
	}

	saved, _ := d.chat.Send(ctx, alice, model.SendMessageRequest{Content: "see file", Recipient: "bob", FileID: model.StringPtr(meta.FileID)})
	hist, _ := d.notifs.History(ctx, bob)
	if len(hist) != 1 || hist[0].Type != model.NotificationNewMessageWithFile {
		t.Errorf("notification for file message = %+v", hist)
	}
	if !saved.HasFile() {
		t.Errorf("saved message lost fileId: %+v", saved)
	}

	var b strings.Builder
	if _, err := d.files.Download(ctx, bob, meta.FileID, &b); err != nil {
		t.Fatalf("Download: %+v", err)
	}
	if b.String() != "quarterly numbers" {
		t.Errorf("downloaded %q", b.String())
	}

	md, err := d.files.Metadata(ctx, bob, meta.FileID)
	if err != nil || md.ContentType != "text/plain" {
		t.Errorf("Metadata() = %+v, %v", md, err)
	}
	if _, err := d.files.Download(ctx, bob, "00000000-0000-0000-0000-000000000000", io.Discard); apiclient.StatusOf(err) != http.StatusNotFound {
		t.Errorf("download of unknown file err = %v", err)
	}
	if _, err := d.files.Metadata(ctx, bob, "not-a-uuid"); apiclient.StatusOf(err) != http.StatusNotFound {
		t.Errorf("metadata with malformed id err = %v", err)
	}
}

func TestUploadBlockedExtension(t *testing.T) {
	d := newDevstack(t)
	alice := d.user(t, "alice")
	_, err := d.files.Upload(context.Background(), alice, "run.sh", strings.NewReader("#!/bin/sh"))
	if apiclient.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("upload of .sh err = %v, want 400", err)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "short"},
		{strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{strings.Repeat("b", 31), strings.Repeat("b", 27) + "..."},
		{strings.Repeat("ж", 40), strings.Repeat("ж", 27) + "..."},
	}
	for _, tt := range tests {
		if got := preview(tt.in); got != tt.want {
			t.Errorf("preview(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	d := newDevstack(t)
	resp, err := d.srv.Client().Get(d.srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %+v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}
