package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestRecordAppendsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewLog(path)
	require.NoError(t, err)

	log.Record("write_file", map[string]interface{}{"path": "a.txt"}, ResultPending, "approval abc")
	log.Record("write_file", map[string]interface{}{"path": "a.txt"}, ResultOK, "approved as abc")
	log.Record("read_file", map[string]interface{}{"path": "../x"}, ResultError, "path rejected")
	require.NoError(t, log.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 3)

	assert.Equal(t, ResultPending, entries[0].Result)
	assert.Equal(t, ResultOK, entries[1].Result)
	assert.Equal(t, ResultError, entries[2].Result)
	assert.Equal(t, "read_file", entries[2].Tool)
	assert.Equal(t, "../x", entries[2].Args["path"])
	assert.False(t, entries[0].At.IsZero())
}

func TestTrailSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := NewLog(path)
	require.NoError(t, err)
	log.Record("read_file", nil, ResultOK, "")
	require.NoError(t, log.Close())

	log, err = NewLog(path)
	require.NoError(t, err)
	log.Record("list_dir", nil, ResultOK, "")
	require.NoError(t, log.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "read_file", entries[0].Tool)
	assert.Equal(t, "list_dir", entries[1].Tool)
}

func TestSubscribeSeesPersistedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewLog(path)
	require.NoError(t, err)

	seen := make(chan *Entry, 4)
	log.Subscribe(func(entry *Entry) { seen <- entry })

	log.Record("delete_path", map[string]interface{}{"path": "junk"}, ResultPending, "")
	require.NoError(t, log.Close())

	entry := <-seen
	assert.Equal(t, "delete_path", entry.Tool)
	assert.Equal(t, ResultPending, entry.Result)
}

func TestRecordAfterCloseIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewLog(path)
	require.NoError(t, err)

	log.Record("read_file", nil, ResultOK, "")
	require.NoError(t, log.Close())

	// Shutdown ordering can leave components recording after the trail is
	// closed; that must never panic or fail, only discard.
	log.Record("write_file", map[string]interface{}{"path": "late.txt"}, ResultOK, "")

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "read_file", entries[0].Tool)
}

func TestConcurrentRecordAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewLog(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Record("read_file", nil, ResultOK, "")
			}
		}()
	}

	require.NoError(t, log.Close())
	wg.Wait()
}

func TestDroppedCountsFullQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewLog(path)
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, int64(0), log.Dropped())
}
