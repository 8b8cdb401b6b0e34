// Package scheduler delivers stored messages once their due time passes.
// It is a thin polling loop over the session store; cron expressions and
// recurring schedules are deliberately not supported.
package scheduler

import (
	"context"
	"time"

	"github.com/codefionn/werkbote/internal/logger"
	"github.com/codefionn/werkbote/internal/session"
)

// DeliverFunc hands one due message to its destination.
type DeliverFunc func(ctx context.Context, msg *session.ScheduledMessage) error

// Scheduler polls the store for due messages at a fixed interval.
type Scheduler struct {
	store    *session.Store
	interval time.Duration
	deliver  DeliverFunc
}

func New(store *session.Store, interval time.Duration, deliver DeliverFunc) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		deliver:  deliver,
	}
}

// Run polls until the context is cancelled. Delivery failures are logged
// and retried on the next tick; a message is only marked delivered after
// its DeliverFunc returns without error.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.store.DueMessages(time.Now())
	if err != nil {
		logger.Error("scheduler: failed to load due messages: %v", err)
		return
	}

	for _, msg := range due {
		if err := s.deliver(ctx, msg); err != nil {
			logger.Warn("scheduler: delivery of %s failed, will retry: %v", msg.ID, err)
			continue
		}
		if err := s.store.MarkDelivered(msg.ID); err != nil {
			logger.Error("scheduler: failed to mark %s delivered: %v", msg.ID, err)
		}
	}
}
