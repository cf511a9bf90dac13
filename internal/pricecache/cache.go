// Package pricecache holds the last observed price text for each metal id.
// Entries are written only by completed fetches and live for the lifetime of
// the process.
package pricecache

import (
	"sync"
	"time"
)

// Result is the outcome of one fetch: either price text or an error.
type Result struct {
	Text string
	Err  error
}

// Ok wraps a successful fetch.
func Ok(text string) Result { return Result{Text: text} }

// Err wraps a failed fetch.
func Err(err error) Result { return Result{Err: err} }

// Entry is one cached value. HasValue is false both for failed fetches and
// for ids that were never fetched; Read does not distinguish the two.
type Entry struct {
	Price     string
	HasValue  bool
	Failed    bool
	UpdatedAt time.Time
}

// Cache maps metal id to its last recorded Entry. It is safe for concurrent
// use; concurrent writes to the same id resolve to whichever Record call
// runs last.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Record overwrites the entry for id. A successful result stores its text
// verbatim; a failed result stores no value.
func (c *Cache) Record(id string, r Result) {
	e := Entry{UpdatedAt: c.now()}
	if r.Err == nil {
		e.Price = r.Text
		e.HasValue = true
	} else {
		e.Failed = true
	}

	c.mu.Lock()
	c.entries[id] = e
	c.mu.Unlock()
}

// Read returns the last recorded price for id. ok is false when the last
// fetch failed or id was never fetched.
func (c *Cache) Read(id string) (price string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e := c.entries[id]
	return e.Price, e.HasValue
}

// Entry returns the full entry for id and whether one has been recorded.
func (c *Cache) Entry(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Snapshot returns a copy of all entries, including those of metals that
// have since left the registry.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Len returns the number of recorded ids.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry. Called at teardown.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}
