package engine

import (
	"context"
	"time"
)

// CancelFunc stops a scheduled task. Safe to call more than once.
type CancelFunc func()

// Scheduler runs a task periodically. The core depends only on this
// interface; production uses TickerScheduler, tests drive ticks manually.
type Scheduler interface {
	Schedule(interval time.Duration, task func(ctx context.Context)) CancelFunc
}

// TickerScheduler schedules tasks on a time.Ticker, one goroutine per task.
type TickerScheduler struct{}

// Schedule runs task every interval until the returned CancelFunc is
// called. The context passed to task is cancelled on cancellation, so an
// in-flight cycle is interrupted when its session is torn down.
func (TickerScheduler) Schedule(interval time.Duration, task func(ctx context.Context)) CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				task(ctx)
			}
		}
	}()
	return CancelFunc(cancel)
}
