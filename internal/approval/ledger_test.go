package approval

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitApproveRemoves(t *testing.T) {
	ledger := NewLedger()

	id := ledger.Submit("write_file", map[string]interface{}{"path": "a.txt"})
	require.NotEmpty(t, id)
	require.Len(t, ledger.List(), 1)

	record, ok := ledger.Approve(id)
	require.True(t, ok)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "write_file", record.Tool)
	assert.Equal(t, "a.txt", record.Args["path"])
	assert.Empty(t, ledger.List())
}

func TestSecondApproveIsNoOp(t *testing.T) {
	ledger := NewLedger()
	id := ledger.Submit("delete_path", map[string]interface{}{"path": "x"})

	_, ok := ledger.Approve(id)
	require.True(t, ok)

	record, ok := ledger.Approve(id)
	assert.False(t, ok)
	assert.Nil(t, record)
}

func TestRejectUnknownID(t *testing.T) {
	ledger := NewLedger()
	_, ok := ledger.Reject("never-submitted")
	assert.False(t, ok)
}

func TestRejectRemoves(t *testing.T) {
	ledger := NewLedger()
	id := ledger.Submit("write_file", nil)

	record, ok := ledger.Reject(id)
	require.True(t, ok)
	assert.Equal(t, "write_file", record.Tool)

	_, ok = ledger.Reject(id)
	assert.False(t, ok)
	assert.Empty(t, ledger.List())

	_, ok = ledger.Approve(id)
	assert.False(t, ok)
}

func TestIDsAreUnique(t *testing.T) {
	ledger := NewLedger()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := ledger.Submit("write_file", nil)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestListPreservesSubmissionOrder(t *testing.T) {
	ledger := NewLedger()

	first := ledger.Submit("write_file", nil)
	second := ledger.Submit("delete_path", nil)
	third := ledger.Submit("write_file", nil)

	ledger.Reject(second)

	pending := ledger.List()
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, third, pending[1].ID)
}

func TestObserversInvokedOncePerResolution(t *testing.T) {
	ledger := NewLedger()

	type resolution struct {
		id       string
		approved bool
	}
	var mu sync.Mutex
	var seen []resolution

	ledger.OnResolve(func(id string, approved bool) {
		mu.Lock()
		seen = append(seen, resolution{id, approved})
		mu.Unlock()
	})

	approveID := ledger.Submit("write_file", nil)
	rejectID := ledger.Submit("delete_path", nil)

	ledger.Approve(approveID)
	ledger.Reject(rejectID)
	// Resolving again must not notify again.
	ledger.Approve(approveID)
	ledger.Reject(rejectID)

	require.Len(t, seen, 2)
	assert.Equal(t, resolution{approveID, true}, seen[0])
	assert.Equal(t, resolution{rejectID, false}, seen[1])
}

func TestObserverNotReplayedForPastResolutions(t *testing.T) {
	ledger := NewLedger()
	id := ledger.Submit("write_file", nil)
	ledger.Approve(id)

	called := false
	ledger.OnResolve(func(string, bool) { called = true })
	assert.False(t, called)
}

func TestConcurrentResolutionExactlyOnce(t *testing.T) {
	ledger := NewLedger()
	id := ledger.Submit("write_file", nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		approve := i%2 == 0
		go func() {
			defer wg.Done()
			if approve {
				if _, ok := ledger.Approve(id); ok {
					wins.Add(1)
				}
			} else {
				if _, ok := ledger.Reject(id); ok {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Empty(t, ledger.List())
}
