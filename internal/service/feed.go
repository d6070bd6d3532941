package service

import (
	"slices"
	"sync"

	"github.com/sumire/oceanschool/internal/domain"
)

// FeedSnapshot is a point-in-time copy of the notification feed.
type FeedSnapshot struct {
	Items       []domain.Notification `json:"items"`
	UnreadCount int                   `json:"unread_count"`
	Connected   bool                  `json:"connected"`
}

// Feed is the in-memory notification list, newest first, plus the unread
// count. The Channel is its only writer.
type Feed struct {
	notifyMu sync.Mutex

	mu        sync.RWMutex
	items     []domain.Notification
	unread    int
	connected bool
	subs      map[int]func(FeedSnapshot)
	nextSub   int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]func(FeedSnapshot))}
}

// Snapshot returns a copy of the current feed.
func (f *Feed) Snapshot() FeedSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not block. The returned func removes the subscription.
func (f *Feed) Subscribe(fn func(FeedSnapshot)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Feed) replace(items []domain.Notification, unread int) {
	f.update(func() bool {
		f.items = slices.Clone(items)
		f.unread = max(unread, 0)
		return true
	})
}

func (f *Feed) prepend(n domain.Notification) {
	f.update(func() bool {
		f.items = append([]domain.Notification{n}, f.items...)
		f.unread++
		return true
	})
}

// markRead flips one item to read. The count is decremented unless the item
// is already known to be read.
func (f *Feed) markRead(id int64) {
	f.update(func() bool {
		idx := slices.IndexFunc(f.items, func(n domain.Notification) bool { return n.ID == id })
		if idx >= 0 {
			if f.items[idx].Read {
				return false
			}
			f.items[idx].Read = true
		}
		f.unread = max(f.unread-1, 0)
		return true
	})
}

func (f *Feed) markAllRead() {
	f.update(func() bool {
		for i := range f.items {
			f.items[i].Read = true
		}
		f.unread = 0
		return true
	})
}

func (f *Feed) reset() {
	f.update(func() bool {
		if len(f.items) == 0 && f.unread == 0 && !f.connected {
			return false
		}
		f.items = nil
		f.unread = 0
		f.connected = false
		return true
	})
}

func (f *Feed) clear() {
	f.update(func() bool {
		f.items = nil
		f.unread = 0
		return true
	})
}

func (f *Feed) setConnected(connected bool) {
	f.update(func() bool {
		if f.connected == connected {
			return false
		}
		f.connected = connected
		return true
	})
}

func (f *Feed) update(mutate func() bool) {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()

	f.mu.Lock()
	if !mutate() {
		f.mu.Unlock()
		return
	}
	snap := f.snapshotLocked()
	subs := make([]func(FeedSnapshot), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (f *Feed) snapshotLocked() FeedSnapshot {
	items := slices.Clone(f.items)
	if items == nil {
		items = []domain.Notification{}
	}
	return FeedSnapshot{Items: items, UnreadCount: f.unread, Connected: f.connected}
}
