package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudchat/internal/apiclient"
	"github.com/cloudchat/internal/app"
	"github.com/cloudchat/internal/fileserver"
	"github.com/cloudchat/internal/handler"
	"github.com/cloudchat/internal/repository"
	"github.com/cloudchat/internal/storage/memory"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
		Users:         repository.NewMemoryUsers(),
		Messages:      repository.NewMemoryMessages(),
		Notifications: memory.New(),
		Files:         fileserver.New(t.TempDir(), 1<<20),
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
	}))
	t.Cleanup(srv.Close)
	clients := &apiclient.Clients{
		Auth:          apiclient.NewAuthClient(srv.URL+"/api/auth", srv.Client()),
		Chat:          apiclient.NewChatClient(srv.URL+"/api/messages", srv.Client()),
		Files:         apiclient.NewFileClient(srv.URL+"/api/files", srv.Client()),
		Notifications: apiclient.NewNotificationClient(srv.URL+"/api/notifications", srv.Client()),
	}
	a := app.New(context.Background(), app.DepsFrom(clients), app.Options{PollInterval: time.Hour})
	t.Cleanup(a.Close)
	var out bytes.Buffer
	return newShell(a, strings.NewReader(""), &out), &out
}

func TestShellCommands(t *testing.T) {
	s, out := newTestShell(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"bogus", `unknown command "bogus"`},
		{"login alice", "usage: login <user> <password>"},
		{"register alice pw", "Registration successful"},
		{"login alice pw", "Welcome, alice!"},
		{"send * hello everyone", "sent #1"},
		{"sent", "#1 -> Broadcast: hello everyone"},
		{"read abc", `error: invalid message id "abc"`},
		{"open 7", "error: message #7 not found"},
		{"notif", "No notifications."},
		{"logout", "Not logged in"},
	}
	for _, tt := range tests {
		out.Reset()
		if s.exec(ctx, tt.line) {
			t.Fatalf("exec(%q) requested exit", tt.line)
		}
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("exec(%q) output = %q, want %q", tt.line, out.String(), tt.want)
		}
	}
	if !s.exec(ctx, "quit") {
		t.Errorf("quit did not end the loop")
	}
}
