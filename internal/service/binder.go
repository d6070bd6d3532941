package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sumire/oceanschool/internal/domain"
)

// Binder drives the notification channel from session changes: an active
// session activates the channel, anything else deactivates it. Changes are
// applied in order on a single goroutine.
type Binder struct {
	sessions *SessionManager
	channel  *Channel
	log      *slog.Logger

	mu      sync.Mutex
	pending []domain.Session
	wake    chan struct{}

	current string
}

func NewBinder(sessions *SessionManager, channel *Channel, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		sessions: sessions,
		channel:  channel,
		log:      logger,
		wake:     make(chan struct{}, 1),
	}
}

// Run applies session changes until ctx is done, then deactivates the channel.
func (b *Binder) Run(ctx context.Context) {
	unsubscribe := b.sessions.Subscribe(b.enqueue)
	defer unsubscribe()
	b.enqueue(b.sessions.Session())

	for {
		select {
		case <-ctx.Done():
			b.channel.Deactivate()
			return
		case <-b.wake:
		}

		b.mu.Lock()
		batch := b.pending
		b.pending = nil
		b.mu.Unlock()

		for _, s := range batch {
			b.apply(ctx, s)
		}
	}
}

func (b *Binder) enqueue(s domain.Session) {
	b.mu.Lock()
	b.pending = append(b.pending, s)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Binder) apply(ctx context.Context, s domain.Session) {
	if !s.Active() {
		if b.current != "" {
			b.log.Debug("session ended, deactivating channel", "username", b.current)
		}
		b.channel.Deactivate()
		b.current = ""
		return
	}

	if b.current != "" && b.current != s.User.Username {
		b.channel.Deactivate()
	}
	b.current = s.User.Username

	if err := b.channel.Activate(ctx, s); err != nil {
		if errors.Is(err, domain.ErrNoCredential) {
			b.log.Warn("session active without usable credential", "username", s.User.Username)
			return
		}
		b.log.Error("failed to activate notification channel", "error", err)
	}
}
