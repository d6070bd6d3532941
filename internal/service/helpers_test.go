package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"github.com/sumire/oceanschool/internal/domain"
)

var errBackend = errors.New("backend unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTokens struct {
	mu     sync.Mutex
	access string
}

func (f *fakeTokens) Token() (*oauth2.Token, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.access == "" {
		return nil, false
	}
	return &oauth2.Token{AccessToken: f.access, TokenType: "Bearer"}, true
}

func (f *fakeTokens) set(access string) {
	f.mu.Lock()
	f.access = access
	f.mu.Unlock()
}

type fakeNotificationAPI struct {
	mu          sync.Mutex
	items       []domain.Notification
	unread      int
	listErr     error
	mutateErr   error
	markedRead  []int64
	markAllHits int
	clearHits   int
}

func (f *fakeNotificationAPI) Notifications(_ context.Context) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Notification(nil), f.items...), nil
}

func (f *fakeNotificationAPI) UnreadCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return 0, f.listErr
	}
	return f.unread, nil
}

func (f *fakeNotificationAPI) MarkRead(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, id)
	return f.mutateErr
}

func (f *fakeNotificationAPI) MarkAllRead(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markAllHits++
	return f.mutateErr
}

func (f *fakeNotificationAPI) ClearNotifications(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearHits++
	return f.mutateErr
}

// pushServer is a websocket endpoint that hands every accepted connection to
// the test and records the close frames it receives.
type pushServer struct {
	srv      *httptest.Server
	conns    chan *websocket.Conn
	closes   chan websocket.CloseError
	accepted atomic.Int32
	tokens   chan string
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{
		conns:  make(chan *websocket.Conn, 16),
		closes: make(chan websocket.CloseError, 16),
		tokens: make(chan string, 16),
	}
	upgrader := websocket.Upgrader{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.accepted.Add(1)
		ps.tokens <- r.URL.Query().Get("token")
		ps.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					ps.closes <- *ce
				}
				return
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http") + "/ws/notifications/"
}

func (ps *pushServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ps.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no push connection accepted")
		return nil
	}
}

func (ps *pushServer) nextClose(t *testing.T) websocket.CloseError {
	t.Helper()
	select {
	case ce := <-ps.closes:
		return ce
	case <-time.After(2 * time.Second):
		t.Fatal("no close frame received")
		return websocket.CloseError{}
	}
}

func activeSession(username string) domain.Session {
	return domain.Session{
		State: domain.SessionActive,
		User:  &domain.User{ID: 1, Username: username, Role: domain.RoleStudent},
	}
}

func unreadItems(ids ...int64) []domain.Notification {
	items := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		items = append(items, domain.Notification{
			ID:        id,
			Type:      domain.NotificationEnrolled,
			Message:   "notification",
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return items
}
