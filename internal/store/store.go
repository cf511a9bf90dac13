// Package store defines the settings store the engine reads its registry
// and visibility configuration from, together with memory, JSON-file and
// SQLite backends. A settings store maps keys to ordered string lists and
// notifies subscribers whenever a key's content changes.
package store

import (
	"context"
	"sync"
)

// Change is delivered to subscribers when the content of Key changes.
type Change struct {
	Key string
}

// SettingsStore is a key -> string-list store with change notifications.
type SettingsStore interface {
	// Strings returns the list stored under key, or an empty list.
	Strings(ctx context.Context, key string) ([]string, error)

	// SetStrings replaces the list under key. Writing a list equal to the
	// current one is a no-op and does not notify.
	SetStrings(ctx context.Context, key string, values []string) error

	// Subscribe returns a channel of changes. bufSize controls the channel
	// buffer; slow consumers have changes dropped.
	Subscribe(bufSize int) (int, <-chan Change)

	// Unsubscribe removes a subscriber and closes its channel.
	Unsubscribe(id int)

	// Close releases the store's resources.
	Close() error
}

// notifier is the pub/sub half shared by every backend.
type notifier struct {
	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Change
}

func (n *notifier) Subscribe(bufSize int) (int, <-chan Change) {
	ch := make(chan Change, bufSize)
	n.subsMu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]chan Change)
	}
	id := n.nextSubID
	n.nextSubID++
	n.subs[id] = ch
	n.subsMu.Unlock()
	return id, ch
}

func (n *notifier) Unsubscribe(id int) {
	n.subsMu.Lock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
	n.subsMu.Unlock()
}

// broadcast sends c to all subscribers non-blocking (drop on full).
func (n *notifier) broadcast(c Change) {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
			// Slow consumer, drop change.
		}
	}
}

// closeAll closes every subscriber channel.
func (n *notifier) closeAll() {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
