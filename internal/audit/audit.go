// Package audit appends an immutable record of every tool invocation
// attempt and its outcome to a JSONL trail. Recording is best-effort: a
// slow or failing sink never blocks or fails the operation it describes.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codefionn/werkbote/internal/logger"
)

// Result classifies the outcome of a recorded attempt.
type Result string

const (
	ResultOK      Result = "ok"
	ResultError   Result = "error"
	ResultPending Result = "pending"
)

// Entry is one immutable audit record. Args are kept for display only and
// are never re-validated or re-executed from the trail.
type Entry struct {
	At     time.Time              `json:"at"`
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Result Result                 `json:"result"`
	Detail string                 `json:"detail,omitempty"`
}

const defaultQueueSize = 256

// Log drains queued entries to an append-only file from a single
// background goroutine, preserving write order.
type Log struct {
	queue     chan *Entry
	file      *os.File
	done      chan struct{}
	dropped   atomic.Int64
	mu        sync.Mutex
	observers []func(*Entry)
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewLog opens (or creates) the audit trail at path and starts the drain
// goroutine.
func NewLog(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}

	l := &Log{
		queue: make(chan *Entry, defaultQueueSize),
		file:  file,
		done:  make(chan struct{}),
	}

	go l.drain()
	return l, nil
}

// Record enqueues one entry with a server-assigned timestamp. It never
// blocks and never fails the caller: a full queue drops the entry and
// counts it, and an entry recorded after Close is discarded.
func (l *Log) Record(tool string, args map[string]interface{}, result Result, detail string) {
	entry := &Entry{
		At:     time.Now(),
		Tool:   tool,
		Args:   args,
		Result: result,
		Detail: detail,
	}

	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		return
	}

	select {
	case l.queue <- entry:
	default:
		dropped := l.dropped.Add(1)
		logger.Warn("audit: queue full, dropped entry for %s (%d dropped total)", tool, dropped)
	}
}

// Dropped returns how many entries were discarded because the queue was
// full.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

// Subscribe registers an observer called from the drain goroutine for
// every persisted entry. Used to push the trail to live consumers.
func (l *Log) Subscribe(fn func(*Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Close flushes queued entries and closes the trail file. Entries
// recorded after Close are silently discarded.
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		l.closeMu.Lock()
		l.closed = true
		close(l.queue)
		l.closeMu.Unlock()
		<-l.done
	})
	return l.file.Close()
}

func (l *Log) drain() {
	defer close(l.done)

	for entry := range l.queue {
		line, err := json.Marshal(entry)
		if err != nil {
			logger.Error("audit: failed to encode entry for %s: %v", entry.Tool, err)
			continue
		}

		if _, err := l.file.Write(append(line, '\n')); err != nil {
			logger.Error("audit: failed to append entry for %s: %v", entry.Tool, err)
			continue
		}

		l.mu.Lock()
		observers := make([]func(*Entry), len(l.observers))
		copy(observers, l.observers)
		l.mu.Unlock()

		for _, fn := range observers {
			fn(entry)
		}
	}
}
