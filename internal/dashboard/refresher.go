package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Refresher re-issues settled views on a fixed interval.
type Refresher struct {
	interval time.Duration
	refresh  func()
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher calling refresh every interval.
func NewRefresher(interval time.Duration, refresh func()) *Refresher {
	return &Refresher{interval: interval, refresh: refresh}
}

// Start begins the refresh loop. A non-positive interval disables it.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Auto refresh panic recovered", slog.Any("panic", rec))
			}
		}()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Debug("Auto refresh stopped")
				return
			case <-ticker.C:
				r.refresh()
			}
		}
	}()
}

// Stop stops the loop and waits for it to exit.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
	}
}
