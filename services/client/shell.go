package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cloudchat/internal/app"
	"github.com/cloudchat/internal/inbox"
	"github.com/cloudchat/internal/notifications"
	"github.com/cloudchat/internal/render"
	"github.com/cloudchat/internal/state"
)

var errUsage = errors.New("usage")

// shell — построчный интерфейс к app.App. Ошибки команд печатаются, цикл продолжается.
type shell struct {
	app *app.App
	in  io.Reader
	out io.Writer

	outMu      sync.Mutex
	lastUnread int
}

type command struct {
	usage string
	run   func(ctx context.Context, s *shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"register":   {"register <user> <password>", cmdRegister},
		"login":      {"login <user> <password>", cmdLogin},
		"logout":     {"logout", cmdLogout},
		"inbox":      {"inbox                      refresh and show received messages", cmdInbox},
		"sent":       {"sent                       show sent messages", cmdSent},
		"send":       {"send <user|*> <text...>    send a message (* = broadcast)", cmdSend},
		"sendfile":   {"sendfile <user|*> <path> [text...]", cmdSendFile},
		"read":       {"read <messageId>           mark a received message as read", cmdRead},
		"open":       {"open <messageId>           open a message and clear the highlight", cmdOpen},
		"bell":       {"bell                       toggle the notification panel", cmdBell},
		"dismiss":    {"dismiss                    close the notification panel", cmdDismiss},
		"notif":      {"notif                      refresh and show notifications", cmdNotif},
		"notif-read": {"notif-read <notificationId>", cmdNotifRead},
		"click":      {"click <notificationId>     mark as read and highlight the message", cmdClick},
		"download":   {"download <fileId> <path>", cmdDownload},
		"help":       {"help", cmdHelp},
	}
}

func newShell(a *app.App, in io.Reader, out io.Writer) *shell {
	return &shell{app: a, in: in, out: out}
}

func (s *shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// view выводит фрагмент экрана под общей блокировкой вывода.
func (s *shell) view(fn func(w io.Writer, st state.State)) {
	st := s.app.Store.Snapshot()
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fn(s.out, st)
}

// watchUnread печатает значок, когда опрос меняет число непрочитанных.
func (s *shell) watchUnread() func() {
	return s.app.Store.Subscribe(func(a state.Action) {
		switch a.(type) {
		case state.NotificationsLoaded, state.NotificationUpdated, state.LoggedOut:
		default:
			return
		}
		st := s.app.Store.Snapshot()
		n := 0
		if st.LoggedIn() {
			n = notifications.UnreadCount(st.Notifications, st.Session.Username)
		}
		s.outMu.Lock()
		changed := n != s.lastUnread
		s.lastUnread = n
		s.outMu.Unlock()
		if changed && n > 0 {
			s.printf("\n[bell] %d unread notification(s)\n", n)
		}
	})
}

func (s *shell) run(ctx context.Context) {
	s.view(render.Header)
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	for {
		s.printf("%s> ", s.app.Screen())
		select {
		case <-ctx.Done():
			s.printf("\n")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if s.exec(ctx, line) {
				return
			}
		}
	}
}

// exec выполняет одну строку и возвращает true для выхода.
func (s *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]
	if name == "quit" || name == "exit" {
		return true
	}
	cmd, ok := commands[name]
	if !ok {
		s.printf("unknown command %q, type help\n", name)
		return false
	}
	if err := cmd.run(ctx, s, args); err != nil {
		if errors.Is(err, errUsage) {
			s.printf("usage: %s\n", cmd.usage)
		} else {
			s.printf("error: %v\n", err)
		}
	}
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func cmdHelp(_ context.Context, s *shell, _ []string) error {
	names := []string{"register", "login", "logout", "inbox", "sent", "send", "sendfile", "read", "open",
		"bell", "dismiss", "notif", "notif-read", "click", "download", "help"}
	for _, n := range names {
		s.printf("  %s\n", commands[n].usage)
	}
	s.printf("  quit\n")
	return nil
}

func cmdRegister(ctx context.Context, s *shell, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	msg, err := s.app.Register(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "registered"
	}
	s.printf("%s\n", render.Text(msg))
	return nil
}

func cmdLogin(ctx context.Context, s *shell, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if err := s.app.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.view(render.Header)
	return nil
}

func cmdLogout(_ context.Context, s *shell, _ []string) error {
	s.app.Logout()
	s.view(render.Header)
	return nil
}

func cmdInbox(ctx context.Context, s *shell, _ []string) error {
	err := s.app.Inbox.Refresh(ctx)
	s.view(func(w io.Writer, st state.State) { render.Received(w, st, s.app.Inbox.DownloadURL) })
	return err
}

func cmdSent(_ context.Context, s *shell, _ []string) error {
	s.view(func(w io.Writer, st state.State) { render.Sent(w, st, s.app.Inbox.DownloadURL) })
	return nil
}

func recipientArg(a string) string {
	if a == "*" {
		return ""
	}
	return a
}

func cmdSend(ctx context.Context, s *shell, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	d := inbox.Draft{Recipient: recipientArg(args[0]), Content: strings.Join(args[1:], " ")}
	return s.send(ctx, d)
}

func cmdSendFile(ctx context.Context, s *shell, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	d := inbox.Draft{Recipient: recipientArg(args[0]), FilePath: args[1], Content: strings.Join(args[2:], " ")}
	return s.send(ctx, d)
}

func (s *shell) send(ctx context.Context, d inbox.Draft) error {
	msg, err := s.app.Inbox.Send(ctx, d)
	if err != nil {
		return err
	}
	s.printf("sent #%d\n", msg.ID)
	return nil
}

func cmdRead(ctx context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if !s.app.Coordinator.MarkChatMessageRead(ctx, id) {
		return fmt.Errorf("message #%d was not marked as read", id)
	}
	s.printf("message #%d read\n", id)
	return nil
}

func cmdOpen(_ context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	m, ok := s.app.Store.ReceivedMessage(id)
	if !ok {
		return fmt.Errorf("message #%d not found", id)
	}
	s.app.Inbox.Click(id)
	s.printf("#%d %s: %s\n", m.ID, render.Text(m.AuthorUsername), render.Text(m.Content))
	return nil
}

func cmdBell(_ context.Context, s *shell, _ []string) error {
	if !s.app.Feed.TogglePanel() {
		s.printf("panel closed\n")
		return nil
	}
	s.view(render.Panel)
	return nil
}

func cmdDismiss(_ context.Context, s *shell, _ []string) error {
	s.app.Feed.DismissPanel()
	return nil
}

func cmdNotif(ctx context.Context, s *shell, _ []string) error {
	err := s.app.Feed.Refresh(ctx)
	s.view(func(w io.Writer, st state.State) {
		st.PanelOpen = true
		render.Panel(w, st)
	})
	return err
}

func cmdNotifRead(ctx context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if !s.app.Coordinator.MarkNotificationRead(ctx, args[0]) {
		return fmt.Errorf("notification %s was not marked as read", args[0])
	}
	s.printf("notification %s read\n", args[0])
	return nil
}

func cmdClick(ctx context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	rec, ok := s.app.Feed.Find(args[0])
	if !ok {
		return fmt.Errorf("notification %s not found", args[0])
	}
	s.app.Coordinator.HandleNotificationClick(ctx, rec)
	s.view(func(w io.Writer, st state.State) { render.Received(w, st, s.app.Inbox.DownloadURL) })
	return nil
}

func cmdDownload(ctx context.Context, s *shell, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	n, err := s.app.Inbox.Download(ctx, args[0], f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(args[1])
		return err
	}
	s.printf("saved %d bytes to %s\n", n, args[1])
	return nil
}
