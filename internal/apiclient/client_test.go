package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudchat/internal/model"
)

func newServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func requireBearer(t *testing.T, r *http.Request, want string) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+want {
		t.Errorf("%s %s: Authorization = %q, want Bearer %s", r.Method, r.URL.Path, got, want)
	}
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req model.AuthRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "pw" {
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send Authorization")
		}
		w.Write([]byte(`{"idToken":"abc","accessToken":"acc","refreshToken":"ref","tokenType":"Bearer"}`))
	})
	srv := newServer(t, mux)
	c := NewAuthClient(srv.URL+"/", nil)

	tokens, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %+v", err)
	}
	if tokens.BearerToken() != "abc" {
		t.Errorf("BearerToken() = %q, want abc", tokens.BearerToken())
	}

	_, err = c.Login(context.Background(), "alice", "wrong")
	if StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("Login(wrong) status = %d, err = %v", StatusOf(err), err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !strings.Contains(apiErr.Body, "Login failed") {
		t.Errorf("APIError body not kept: %+v", err)
	}
}

func TestRegisterReturnsText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Registration successful. UserSub: 1\n"))
	})
	c := NewAuthClient(newServer(t, mux).URL, nil)

	msg, err := c.Register(context.Background(), "bob", "pw")
	if err != nil {
		t.Fatalf("Register: %+v", err)
	}
	if msg != "Registration successful. UserSub: 1" {
		t.Errorf("Register() = %q", msg)
	}
}

func TestMissingConfig(t *testing.T) {
	tests := []struct {
		name string
		call func() error
	}{
		{"login", func() error { _, err := NewAuthClient("", nil).Login(context.Background(), "a", "b"); return err }},
		{"received", func() error { _, err := NewChatClient("", nil).Received(context.Background(), "t", "a"); return err }},
		{"history", func() error { _, err := NewNotificationClient("", nil).History(context.Background(), "t"); return err }},
		{"download", func() error {
			_, err := NewFileClient("", nil).Download(context.Background(), "t", "f", io.Discard)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrMissingConfig) {
				t.Errorf("error = %v, want ErrMissingConfig", err)
			}
		})
	}
	if u := NewFileClient("", nil).DownloadURL("f"); u != "" {
		t.Errorf("DownloadURL without config = %q, want empty", u)
	}
}

func TestChatClient(t *testing.T) {
	var markedPath string
	var sent model.SendMessageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/messages/received", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "abc")
		if r.URL.Query().Get("username") != "alice smith" {
			t.Errorf("username query = %q", r.URL.Query().Get("username"))
		}
		w.Write([]byte(`[{"id":3,"authorUsername":"bob","recipientUsername":"alice smith","content":"hi","read":false}]`))
	})
	mux.HandleFunc("GET /api/messages/sent", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	mux.HandleFunc("POST /api/messages", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "abc")
		json.NewDecoder(r.Body).Decode(&sent)
		w.Write([]byte(`{"id":10,"authorUsername":"alice","content":"yo"}`))
	})
	mux.HandleFunc("POST /api/messages/{id}/mark-as-read", func(w http.ResponseWriter, r *http.Request) {
		markedPath = r.URL.Path
		if r.PathValue("id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{}`))
	})
	c := NewChatClient(newServer(t, mux).URL+"/api/messages", nil)
	ctx := context.Background()

	recv, err := c.Received(ctx, "abc", "alice smith")
	if err != nil || len(recv) != 1 || recv[0].ID != 3 || recv[0].Recipient() != "alice smith" {
		t.Fatalf("Received() = %+v, %v", recv, err)
	}
	sentList, err := c.Sent(ctx, "abc", "alice")
	if err != nil || sentList == nil || len(sentList) != 0 {
		t.Errorf("Sent() with null body = %#v, %v; want empty non-nil slice", sentList, err)
	}

	saved, err := c.Send(ctx, "abc", model.SendMessageRequest{Author: "alice", Content: "yo", Recipient: "bob"})
	if err != nil || saved.ID != 10 {
		t.Fatalf("Send() = %+v, %v", saved, err)
	}
	if sent.Recipient != "bob" || sent.FileID != nil {
		t.Errorf("send body = %+v", sent)
	}

	if err := c.MarkAsRead(ctx, "abc", 42); err != nil {
		t.Fatalf("MarkAsRead: %+v", err)
	}
	if markedPath != "/api/messages/42/mark-as-read" {
		t.Errorf("mark path = %q", markedPath)
	}
	if err := c.MarkAsRead(ctx, "abc", 404); StatusOf(err) != http.StatusNotFound {
		t.Errorf("MarkAsRead(404) err = %v", err)
	}
}

func TestNotificationClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "abc")
		w.Write([]byte(`[{"notificationId":"n1","userId":"alice","type":"NEW_MESSAGE","message":"m","timestamp":5,"status":"SENT","readNotification":false,"relatedEntityId":"42"}]`))
	})
	mux.HandleFunc("POST /{id}/mark-as-read", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "n1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"notificationId":"n1","userId":"alice","readNotification":true}`))
	})
	c := NewNotificationClient(newServer(t, mux).URL, nil)
	ctx := context.Background()

	recs, err := c.History(ctx, "abc")
	if err != nil || len(recs) != 1 {
		t.Fatalf("History() = %+v, %v", recs, err)
	}
	if related, ok := recs[0].Related(); !ok || related != "42" {
		t.Errorf("related = %q, %v", related, ok)
	}

	rec, err := c.MarkAsRead(ctx, "abc", "n1")
	if err != nil || !rec.ReadNotification {
		t.Fatalf("MarkAsRead(n1) = %+v, %v", rec, err)
	}
	if _, err := c.MarkAsRead(ctx, "abc", "x"); StatusOf(err) != http.StatusForbidden {
		t.Errorf("MarkAsRead(x) err = %v, want 403", err)
	}
}

func TestFileClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "abc")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "note.txt" || string(data) != "hello" {
			t.Errorf("upload = %q %q", hdr.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"fileId":"f-1","originalFilename":"note.txt","size":5}`))
	})
	mux.HandleFunc("GET /download/{id}", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r, "abc")
		if r.PathValue("id") != "f-1" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/blob/f-1", http.StatusFound)
	})
	mux.HandleFunc("GET /blob/f-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	mux.HandleFunc("GET /metadata/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fileId":"f-1","originalFilename":"note.txt","contentType":"text/plain","size":5}`))
	})
	srv := newServer(t, mux)
	c := NewFileClient(srv.URL, nil)
	ctx := context.Background()

	meta, err := c.Upload(ctx, "abc", "/some/dir/note.txt", strings.NewReader("hello"))
	if err != nil || meta.FileID != "f-1" {
		t.Fatalf("Upload() = %+v, %v", meta, err)
	}

	var b strings.Builder
	n, err := c.Download(ctx, "abc", "f-1", &b)
	if err != nil || n != 5 || b.String() != "hello" {
		t.Fatalf("Download() = %d %q, %v", n, b.String(), err)
	}
	if _, err := c.Download(ctx, "abc", "missing", io.Discard); StatusOf(err) != http.StatusNotFound {
		t.Errorf("Download(missing) err = %v, want 404", err)
	}
	if u := c.DownloadURL("f-1"); u != srv.URL+"/download/f-1" {
		t.Errorf("DownloadURL = %q", u)
	}

	md, err := c.Metadata(ctx, "abc", "f-1")
	if err != nil || md.ContentType != "text/plain" {
		t.Errorf("Metadata() = %+v, %v", md, err)
	}
}

func TestUploadWithoutFileID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := NewFileClient(newServer(t, mux).URL, nil)
	if _, err := c.Upload(context.Background(), "abc", "a.txt", strings.NewReader("x")); err == nil {
		t.Errorf("Upload() error = nil for response without fileId")
	}
}
