// Package workspace performs the actual filesystem I/O for agent tools.
// Every target path is validated by the sandbox before storage is touched.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/sandbox"
)

// ErrNotFound reports a read of a path with no file behind it.
var ErrNotFound = errors.New("file not found")

// TooLargeError reports a file whose content exceeds the caller's byte
// budget. The size is only known after the full read completes.
type TooLargeError struct {
	Path string
	Size int64
	Max  int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %s is %d bytes, limit is %d", e.Path, e.Size, e.Max)
}

// DirMarker is appended to directory names in listings so callers can tell
// files and directories apart without a second stat.
const DirMarker = "/"

type dirCacheEntry struct {
	entries   []string
	timestamp time.Time
}

// Store executes read/write/list/delete against the workspace root, with a
// directory-listing cache invalidated by fsnotify events.
type Store struct {
	sandbox    *sandbox.Sandbox
	dirCache   map[string]*dirCacheEntry
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
	maxEntries int
	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
}

// NewStore creates a store on top of the given sandbox. A cacheTTL of zero
// disables listing caching entirely.
func NewStore(sb *sandbox.Sandbox, cacheTTL time.Duration, maxEntries int) *Store {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("workspace: failed to create file watcher: %v", err)
	}

	s := &Store{
		sandbox:    sb,
		dirCache:   make(map[string]*dirCacheEntry),
		cacheTTL:   cacheTTL,
		maxEntries: maxEntries,
		watcher:    watcher,
		stopWatch:  make(chan struct{}),
	}

	if watcher != nil {
		go s.watchFiles()
	}

	return s
}

// Close stops the filesystem watcher.
func (s *Store) Close() error {
	close(s.stopWatch)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Root returns the absolute workspace root directory.
func (s *Store) Root() string {
	return s.sandbox.Root()
}

// watchFiles invalidates cached listings when anything inside a watched
// directory changes.
func (s *Store) watchFiles() {
	for {
		select {
		case <-s.stopWatch:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.invalidateDirCache(filepath.Dir(event.Name))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("workspace: filesystem watcher error: %v", err)
		}
	}
}

func (s *Store) invalidateDirCache(absDir string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.dirCache, absDir)
}

// ReadText reads the full file at path. maxBytes caps the accepted payload;
// a non-positive value means no limit. The check runs after the read
// completes, so an oversized file is still read once before being refused.
func (s *Store) ReadText(ctx context.Context, path string, maxBytes int64) (string, error) {
	resolved, err := s.sandbox.Resolve(path, sandbox.ModeRead)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", &TooLargeError{Path: path, Size: int64(len(data)), Max: maxBytes}
	}

	return string(data), nil
}

// WriteText writes content to path, creating parent directories as needed.
// An existing file is overwritten.
func (s *Store) WriteText(ctx context.Context, path, content string) error {
	resolved, err := s.sandbox.Resolve(path, sandbox.ModeWrite)
	if err != nil {
		return err
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directories for %s: %w", path, err)
	}

	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	s.invalidateDirCache(dir)

	if s.watcher != nil {
		if err := s.watcher.Add(dir); err != nil {
			logger.Warn("workspace: failed to watch %s: %v", dir, err)
		}
	}

	logger.Debug("workspace: wrote %s (%d bytes)", path, len(content))
	return nil
}

// ListDir lists the entries of a directory relative to the root. An empty
// path lists the root itself. Directories carry a trailing separator
// marker; the order is whatever the filesystem returns.
func (s *Store) ListDir(ctx context.Context, path string) ([]string, error) {
	if path == "" {
		path = "."
	}

	resolved, err := s.sandbox.Resolve(path, sandbox.ModeList)
	if err != nil {
		return nil, err
	}

	if entries, ok := s.cachedListing(resolved); ok {
		return entries, nil
	}

	dirEntries, err := os.ReadDir(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	entries := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		name := entry.Name()
		if entry.IsDir() {
			name += DirMarker
		}
		entries = append(entries, name)
	}

	s.storeListing(resolved, entries)

	if s.watcher != nil {
		if err := s.watcher.Add(resolved); err != nil {
			logger.Warn("workspace: failed to watch %s: %v", resolved, err)
		}
	}

	return entries, nil
}

// Remove deletes path recursively. Removing a path that does not exist is
// not an error.
func (s *Store) Remove(ctx context.Context, path string) error {
	resolved, err := s.sandbox.Resolve(path, sandbox.ModeDelete)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	s.invalidateDirCache(filepath.Dir(resolved))
	logger.Debug("workspace: removed %s", path)
	return nil
}

func (s *Store) cachedListing(absDir string) ([]string, bool) {
	if s.cacheTTL <= 0 {
		return nil, false
	}

	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	entry, ok := s.dirCache[absDir]
	if !ok || time.Since(entry.timestamp) >= s.cacheTTL {
		return nil, false
	}
	return entry.entries, true
}

func (s *Store) storeListing(absDir string, entries []string) {
	if s.cacheTTL <= 0 {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.maxEntries > 0 && len(s.dirCache) >= s.maxEntries {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range s.dirCache {
			if oldestKey == "" || v.timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.timestamp
			}
		}
		delete(s.dirCache, oldestKey)
	}

	s.dirCache[absDir] = &dirCacheEntry{
		entries:   entries,
		timestamp: time.Now(),
	}
}
