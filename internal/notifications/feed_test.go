package notifications

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudchat/internal/model"
	"github.com/cloudchat/internal/state"
)

type fakeAPI struct {
	mu      sync.Mutex
	history []model.NotificationRecord
	err     error
	calls   atomic.Int32
	marked  []string
	markErr error
}

func (f *fakeAPI) History(context.Context, string) ([]model.NotificationRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NotificationRecord(nil), f.history...), f.err
}

func (f *fakeAPI) MarkAsRead(_ context.Context, _ string, id string) (*model.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	if f.markErr != nil {
		return nil, f.markErr
	}
	for _, r := range f.history {
		if r.NotificationID == id {
			r.ReadNotification = true
			return &r, nil
		}
	}
	return nil, errors.New("404")
}

func loggedIn() *state.Store {
	s := state.NewStore()
	s.Dispatch(state.LoggedIn{Session: model.Session{Token: "abc", Username: "alice"}})
	return s
}

func rec(id, user string, ts int64, read bool) model.NotificationRecord {
	return model.NotificationRecord{NotificationID: id, UserID: user, Timestamp: ts, ReadNotification: read}
}

func TestRefreshSortsByTimestampDesc(t *testing.T) {
	api := &fakeAPI{history: []model.NotificationRecord{rec("a", "alice", 100, false), rec("b", "alice", 300, false), rec("c", "alice", 200, false)}}
	store := loggedIn()
	f := New(api, store, time.Hour)

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %+v", err)
	}
	got := store.Notifications()
	if got[0].NotificationID != "b" || got[1].NotificationID != "c" || got[2].NotificationID != "a" {
		t.Errorf("order = %v %v %v, want b c a", got[0].NotificationID, got[1].NotificationID, got[2].NotificationID)
	}
}

func TestRefreshErrorClearsCache(t *testing.T) {
	api := &fakeAPI{history: []model.NotificationRecord{rec("a", "alice", 1, false)}}
	store := loggedIn()
	f := New(api, store, time.Hour)
	f.Refresh(context.Background())

	api.err = errors.New("503")
	if err := f.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh() error = nil, want 503")
	}
	if got := store.Notifications(); len(got) != 0 {
		t.Errorf("cache after failed fetch = %+v, want empty", got)
	}
}

func TestUnreadCount(t *testing.T) {
	recs := []model.NotificationRecord{
		rec("1", "alice", 1, false),
		rec("2", "alice", 2, true),
		rec("3", "bob", 3, false),
		rec("4", "alice", 4, false),
	}
	tests := []struct {
		user string
		want int
	}{
		{"alice", 2},
		{"bob", 1},
		{"carol", 0},
	}
	for _, tt := range tests {
		if got := UnreadCount(recs, tt.user); got != tt.want {
			t.Errorf("UnreadCount(%s) = %d, want %d", tt.user, got, tt.want)
		}
	}
	if got := ForUser(recs, "alice"); len(got) != 3 || got[2].NotificationID != "4" {
		t.Errorf("ForUser(alice) = %+v", got)
	}
}

func TestMarkReadUpdatesCache(t *testing.T) {
	api := &fakeAPI{history: []model.NotificationRecord{rec("n1", "alice", 1, false)}}
	store := loggedIn()
	f := New(api, store, time.Hour)
	f.Refresh(context.Background())

	if _, err := f.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("MarkRead: %+v", err)
	}
	if n, _ := f.Find("n1"); !n.ReadNotification {
		t.Errorf("cached record not updated: %+v", n)
	}
	if f.UnreadCount("alice") != 0 {
		t.Errorf("UnreadCount after MarkRead = %d", f.UnreadCount("alice"))
	}
	if _, ok := f.Find("nope"); ok {
		t.Errorf("Find(nope) found a record")
	}
}

func TestPollingLifecycle(t *testing.T) {
	api := &fakeAPI{}
	f := New(api, loggedIn(), 5*time.Millisecond)

	f.StartPolling(context.Background())
	f.StartPolling(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for api.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller made %d calls", api.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.StopPolling()

	n := api.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := api.calls.Load(); got != n {
		t.Errorf("history fetched after StopPolling: %d -> %d", n, got)
	}
	f.StopPolling()
}

func TestPanel(t *testing.T) {
	store := loggedIn()
	f := New(&fakeAPI{}, store, time.Hour)

	if !f.TogglePanel() {
		t.Fatalf("first toggle should open the panel")
	}
	if f.TogglePanel() {
		t.Fatalf("second toggle should close the panel")
	}
	f.TogglePanel()
	f.DismissPanel()
	if store.Snapshot().PanelOpen {
		t.Errorf("panel open after DismissPanel")
	}
}
