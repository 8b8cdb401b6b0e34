package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/werkbote/internal/session"
)

func newTestStore(t *testing.T) *session.Store {
	t.Helper()

	store, err := session.NewStore(filepath.Join(t.TempDir(), "werkbote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTickDeliversDueMessages(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ScheduleMessage("", "due now", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	var delivered []string
	s := New(store, time.Second, func(ctx context.Context, msg *session.ScheduledMessage) error {
		delivered = append(delivered, msg.Body)
		return nil
	})

	s.tick(context.Background())
	assert.Equal(t, []string{"due now"}, delivered)

	// Delivered messages do not come back on the next tick.
	s.tick(context.Background())
	assert.Len(t, delivered, 1)
}

func TestTickSkipsFutureMessages(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ScheduleMessage("", "not yet", time.Now().Add(time.Hour))
	require.NoError(t, err)

	var delivered int
	s := New(store, time.Second, func(ctx context.Context, msg *session.ScheduledMessage) error {
		delivered++
		return nil
	})

	s.tick(context.Background())
	assert.Zero(t, delivered)
}

func TestFailedDeliveryRetries(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ScheduleMessage("", "flaky", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	attempts := 0
	s := New(store, time.Second, func(ctx context.Context, msg *session.ScheduledMessage) error {
		attempts++
		if attempts == 1 {
			return errors.New("sink unavailable")
		}
		return nil
	})

	s.tick(context.Background())
	s.tick(context.Background())
	assert.Equal(t, 2, attempts)

	// Second attempt succeeded; nothing left to deliver.
	s.tick(context.Background())
	assert.Equal(t, 2, attempts)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newTestStore(t)

	s := New(store, 5*time.Millisecond, func(ctx context.Context, msg *session.ScheduledMessage) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	store := newTestStore(t)

	s := New(store, 0, nil)
	assert.Equal(t, 30*time.Second, s.interval)
}
