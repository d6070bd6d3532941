package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/oceanschool/internal/api"
	"github.com/sumire/oceanschool/internal/domain"
)

// ChannelState is the connection state of the push channel.
type ChannelState string

const (
	ChannelIdle             ChannelState = "IDLE"
	ChannelConnecting       ChannelState = "CONNECTING"
	ChannelConnected        ChannelState = "CONNECTED"
	ChannelReconnectPending ChannelState = "RECONNECT_PENDING"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	logoutReason          = "User logged out"
	closeWriteTimeout     = time.Second
)

// NotificationAPI is the slice of the backend the channel talks to.
type NotificationAPI interface {
	Notifications(ctx context.Context) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	ClearNotifications(ctx context.Context) error
}

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// PushURL is the websocket endpoint; the access token is appended as ?token=.
	PushURL        string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
}

// Channel keeps the notification feed live for the active session: it
// hydrates the feed over request/response, holds one push connection, and
// reconnects after unexpected closes.
type Channel struct {
	api     NotificationAPI
	tokens  api.TokenSource
	feed    *Feed
	pushURL *url.URL
	delay   time.Duration
	dialer  *websocket.Dialer
	log     *slog.Logger

	mu    sync.Mutex
	state ChannelState
	// gen identifies the current connection attempt. Events carrying an older
	// value belong to a torn-down attempt and are ignored.
	gen   uint64
	conn  *websocket.Conn
	timer *time.Timer

	// cancelDial aborts the dial in flight, if any.
	cancelDial context.CancelFunc
}

// NewChannel creates an idle Channel writing into feed.
func NewChannel(notifications NotificationAPI, tokens api.TokenSource, feed *Feed, opts ChannelOptions) (*Channel, error) {
	u, err := url.Parse(opts.PushURL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("push url must be ws or wss, got %q", opts.PushURL)
	}

	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Channel{
		api:     notifications,
		tokens:  tokens,
		feed:    feed,
		pushURL: u,
		delay:   delay,
		dialer:  dialer,
		log:     logger.With("component", "notification_channel"),
		state:   ChannelIdle,
	}, nil
}

// Feed returns the feed this channel writes into.
func (c *Channel) Feed() *Feed {
	return c.feed
}

// State returns the current connection state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activate hydrates the feed and opens the push connection for an active
// session. It is a no-op while a connection is open or being opened, and it
// supersedes a pending reconnect. Hydration failure is logged and does not
// prevent the connection attempt.
func (c *Channel) Activate(ctx context.Context, session domain.Session) error {
	if !session.Active() {
		return domain.ErrNoSession
	}

	c.mu.Lock()
	if c.state == ChannelConnecting || c.state == ChannelConnected {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.usableToken(); !ok {
		c.mu.Unlock()
		return domain.ErrNoCredential
	}
	c.stopTimerLocked()
	c.cancelDialLocked()
	c.gen++
	gen := c.gen
	c.state = ChannelConnecting
	c.mu.Unlock()

	c.log.Info("activating", "username", session.User.Username)
	if err := c.hydrate(ctx, gen); err != nil {
		c.log.Warn("hydration failed", "error", err)
	}

	go c.connect(gen)
	return nil
}

// Deactivate cancels any pending reconnect, closes the connection with the
// logout close code and empties the feed. Safe to call repeatedly.
func (c *Channel) Deactivate() {
	c.mu.Lock()
	c.gen++
	c.stopTimerLocked()
	c.cancelDialLocked()
	conn := c.conn
	c.conn = nil
	wasIdle := c.state == ChannelIdle
	c.state = ChannelIdle
	c.feed.reset()
	c.mu.Unlock()

	if conn != nil {
		c.closeIntentionally(conn)
	}
	if !wasIdle {
		c.log.Info("deactivated")
	}
}

// Reload re-runs hydration for the current attempt.
func (c *Channel) Reload(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	idle := c.state == ChannelIdle
	c.mu.Unlock()
	if idle {
		return domain.ErrNoSession
	}
	return c.hydrate(ctx, gen)
}

// MarkRead flips one notification to read locally, then tells the backend.
// A backend failure is logged and the local change is kept.
func (c *Channel) MarkRead(ctx context.Context, id int64) {
	c.feed.markRead(id)
	if err := c.api.MarkRead(ctx, id); err != nil {
		c.log.Warn("mark read failed", "notification_id", id, "error", err)
	}
}

// MarkAllRead flips every notification to read locally, then tells the
// backend. A backend failure is logged and the local change is kept.
func (c *Channel) MarkAllRead(ctx context.Context) {
	c.feed.markAllRead()
	if err := c.api.MarkAllRead(ctx); err != nil {
		c.log.Warn("mark all read failed", "error", err)
	}
}

// ClearAll deletes every notification on the backend and, on success,
// empties the feed.
func (c *Channel) ClearAll(ctx context.Context) error {
	if err := c.api.ClearNotifications(ctx); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	c.feed.clear()
	return nil
}

func (c *Channel) hydrate(ctx context.Context, gen uint64) error {
	var (
		items  []domain.Notification
		unread int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = c.api.Notifications(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = c.api.UnreadCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.feed.replace(items, unread)
	c.log.Debug("hydrated", "items", len(items), "unread", unread)
	return nil
}

func (c *Channel) connect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	tok, ok := c.usableToken()
	if !ok {
		c.state = ChannelIdle
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDialLocked()
	c.cancelDial = cancel
	c.mu.Unlock()

	target := *c.pushURL
	q := target.Query()
	q.Set("token", tok)
	target.RawQuery = q.Encode()

	conn, resp, err := c.dial(ctx, target.String())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			c.closeIntentionally(conn)
		}
		return
	}
	c.cancelDial = nil
	if err != nil {
		c.log.Warn("push connection failed", "error", err)
		c.afterCloseLocked(gen, false)
		c.mu.Unlock()
		return
	}
	c.conn = conn
	c.state = ChannelConnected
	c.feed.setConnected(true)
	c.mu.Unlock()

	c.log.Info("push connection open")
	c.readLoop(gen, conn)
}

// dial opens the push connection. Cancelling ctx aborts the attempt at any
// point, including while the handshake response is outstanding.
func (c *Channel) dial(ctx context.Context, target string) (*websocket.Conn, *http.Response, error) {
	d := *c.dialer
	netDial := d.NetDialContext
	if netDial == nil {
		netDial = (&net.Dialer{}).DialContext
	}

	var stop func() bool
	d.NetDialContext = func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		nc, err := netDial(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		stop = context.AfterFunc(ctx, func() { _ = nc.Close() })
		return nc, nil
	}

	conn, resp, err := d.DialContext(ctx, target, nil)
	if stop != nil {
		stop()
	}
	return conn, resp, err
}

func (c *Channel) closeIntentionally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, logoutReason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
		c.log.Debug("close frame not sent", "error", err)
	}
	_ = conn.Close()
}

func (c *Channel) cancelDialLocked() {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
}

func (c *Channel) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.closed(gen, conn, err)
			return
		}

		var ev domain.PushEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Warn("dropping malformed push message", "error", err)
			continue
		}
		if ev.Type != domain.PushEventNotification || ev.Notification == nil {
			c.log.Debug("ignoring push message", "type", ev.Type)
			continue
		}

		c.mu.Lock()
		if gen == c.gen {
			c.feed.prepend(*ev.Notification)
		}
		c.mu.Unlock()
	}
}

func (c *Channel) closed(gen uint64, conn *websocket.Conn, err error) {
	_ = conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.conn = nil
	c.feed.setConnected(false)

	intentional := websocket.IsCloseError(err, websocket.CloseNormalClosure)
	if !intentional {
		c.log.Warn("push connection closed", "error", err)
	} else {
		c.log.Info("push connection closed normally")
	}
	c.afterCloseLocked(gen, intentional)
}

// afterCloseLocked schedules the single reconnect attempt for gen, or goes
// idle when the close was intentional or no usable credential remains.
func (c *Channel) afterCloseLocked(gen uint64, intentional bool) {
	if intentional {
		c.state = ChannelIdle
		return
	}
	if _, ok := c.usableToken(); !ok {
		c.state = ChannelIdle
		return
	}

	c.stopTimerLocked()
	c.state = ChannelReconnectPending
	c.timer = time.AfterFunc(c.delay, func() { c.reconnect(gen) })
	c.log.Info("reconnect scheduled", "delay", c.delay)
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != ChannelReconnectPending {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.gen++
	next := c.gen
	c.state = ChannelConnecting
	c.mu.Unlock()

	c.connect(next)
}

func (c *Channel) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Channel) usableToken() (string, bool) {
	tok, ok := c.tokens.Token()
	if !ok || tok.AccessToken == "" {
		return "", false
	}
	if expired(tok.AccessToken, time.Now()) {
		return "", false
	}
	return tok.AccessToken, true
}

// expired reports whether a JWT access token carries an exp claim in the
// past. Opaque tokens are never considered expired.
func expired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
