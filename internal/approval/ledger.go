// Package approval holds mutation requests that need an explicit decision
// before they run. The ledger is policy-agnostic: it only tracks pending
// requests and guarantees each one is resolved exactly once. Whoever calls
// Approve is responsible for executing the authorized action afterwards.
package approval

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/codefionn/werkbote/internal/logger"
)

// PendingTool is one mutation request awaiting a decision. Records are
// never mutated after submission; resolution removes them from the ledger.
type PendingTool struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Args      map[string]interface{} `json:"args"`
	CreatedAt time.Time              `json:"created_at"`
}

// ResolveFunc is invoked synchronously on every approve or reject.
type ResolveFunc func(id string, approved bool)

// Ledger is a keyed store of pending mutation requests. Safe for
// concurrent use; concurrent resolutions of the same id race safely and
// exactly one caller wins.
type Ledger struct {
	mu        sync.Mutex
	pending   map[string]*PendingTool
	order     []string
	observers []ResolveFunc
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		pending: make(map[string]*PendingTool),
	}
}

// Submit stores a new pending request and returns its id.
func (l *Ledger) Submit(tool string, args map[string]interface{}) string {
	id := generateRequestID()

	l.mu.Lock()
	l.pending[id] = &PendingTool{
		ID:        id,
		Tool:      tool,
		Args:      args,
		CreatedAt: time.Now(),
	}
	l.order = append(l.order, id)
	l.mu.Unlock()

	logger.Info("approval: pending %s request %s", tool, id)
	return id
}

// Approve resolves a pending request positively and returns the removed
// record. An unknown or already-resolved id returns (nil, false) with no
// side effect, so a second approval of the same id is a harmless no-op.
func (l *Ledger) Approve(id string) (*PendingTool, bool) {
	record := l.take(id)
	if record == nil {
		return nil, false
	}

	logger.Info("approval: approved %s request %s", record.Tool, id)
	l.notify(id, true)
	return record, true
}

// Reject resolves a pending request negatively and returns the removed
// record, so callers can report what was declined. An unknown or
// already-resolved id returns (nil, false) with no side effect.
func (l *Ledger) Reject(id string) (*PendingTool, bool) {
	record := l.take(id)
	if record == nil {
		return nil, false
	}

	logger.Info("approval: rejected %s request %s", record.Tool, id)
	l.notify(id, false)
	return record, true
}

// Get returns the pending record for id without resolving it.
func (l *Ledger) Get(id string) (*PendingTool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.pending[id]
	return record, ok
}

// List returns a snapshot of all pending requests in submission order.
func (l *Ledger) List() []*PendingTool {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*PendingTool, 0, len(l.pending))
	for _, id := range l.order {
		if record, ok := l.pending[id]; ok {
			result = append(result, record)
		}
	}
	return result
}

// OnResolve registers an observer invoked synchronously on every future
// resolution. Past resolutions are not replayed.
func (l *Ledger) OnResolve(fn ResolveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// take removes and returns the pending record for id, or nil if absent.
// This is the single consumption point that makes resolution exactly-once.
func (l *Ledger) take(id string) *PendingTool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.pending[id]
	if !ok {
		return nil
	}
	delete(l.pending, id)

	for i, pendingID := range l.order {
		if pendingID == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	return record
}

func (l *Ledger) notify(id string, approved bool) {
	l.mu.Lock()
	observers := make([]ResolveFunc, len(l.observers))
	copy(observers, l.observers)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(id, approved)
	}
}

// generateRequestID creates a random request id (hex, 16 chars).
func generateRequestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
