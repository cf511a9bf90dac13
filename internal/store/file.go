package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

var _ SettingsStore = (*FileStore)(nil)

// FileStore persists settings as a single JSON object of string lists. The
// file is rewritten on every change, and edits made to it by other processes
// are picked up through fsnotify and announced like local writes.
type FileStore struct {
	notifier

	mu       sync.RWMutex
	data     map[string][]string
	filePath string
	log      *slog.Logger

	watcher *fsnotify.Watcher
	doneCh  chan struct{}
}

// NewFileStore opens the settings file at filePath, creating its directory
// if needed, and starts watching it for external edits. A missing file is
// treated as empty settings.
func NewFileStore(filePath string, log *slog.Logger) (*FileStore, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings dir: %w", err)
	}

	s := &FileStore{
		data:     make(map[string][]string),
		filePath: filePath,
		log:      log,
		doneCh:   make(chan struct{}),
	}
	if data, err := s.read(); err == nil {
		s.data = data
		s.log.Info("loaded settings", "path", filePath, "keys", len(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("loading settings file", "path", filePath, "error", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory rather than the file so that editors which replace
	// the file by rename keep being observed.
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	s.watcher = w

	go s.watch()
	return s, nil
}

// Strings returns a copy of the list under key.
func (s *FileStore) Strings(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStrings(s.data[key]), nil
}

// SetStrings replaces the list under key, persists to disk, and notifies
// subscribers.
func (s *FileStore) SetStrings(_ context.Context, key string, values []string) error {
	s.mu.Lock()
	if equalStrings(s.data[key], values) {
		s.mu.Unlock()
		return nil
	}
	prev, had := s.data[key]
	s.data[key] = cloneStrings(values)
	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.broadcast(Change{Key: key})
	return nil
}

// Close stops the watcher and closes subscriber channels.
func (s *FileStore) Close() error {
	err := s.watcher.Close()
	<-s.doneCh
	s.closeAll()
	return err
}

// watch is the fsnotify event loop.
func (s *FileStore) watch() {
	defer close(s.doneCh)
	name := filepath.Clean(s.filePath)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.reload()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("settings watcher error", "error", err)
		}
	}
}

// reload re-reads the file and announces every key whose content differs
// from memory. Unreadable or half-written files are ignored; the next event
// retries.
func (s *FileStore) reload() {
	// Read under mu so a concurrent flush cannot interleave.
	s.mu.Lock()
	data, err := s.read()
	if errors.Is(err, os.ErrNotExist) {
		data = map[string][]string{}
	} else if err != nil {
		s.mu.Unlock()
		s.log.Debug("ignoring unreadable settings file", "path", s.filePath, "error", err)
		return
	}

	var changed []string
	for key, values := range data {
		if !equalStrings(s.data[key], values) {
			changed = append(changed, key)
		}
	}
	for key, values := range s.data {
		if _, ok := data[key]; !ok && len(values) > 0 {
			changed = append(changed, key)
		}
	}
	s.data = data
	s.mu.Unlock()

	sort.Strings(changed)
	for _, key := range changed {
		s.log.Info("settings changed on disk", "key", key)
		s.broadcast(Change{Key: key})
	}
}

func (s *FileStore) read() (map[string][]string, error) {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}
	data := make(map[string][]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return data, nil
}

// flush writes the in-memory state to disk via a temp file and rename.
// Must be called with mu held.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
