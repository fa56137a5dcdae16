package background

import (
	"context"
	"time"

	"ai-tutor-be/internal/pkg/logger"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Runner executes fire-and-forget work detached from any request. Failures
// and panics go to the sink logger and never reach the caller.
type Runner struct {
	wg      conc.WaitGroup
	sink    logger.ILogger
	timeout time.Duration
}

func NewRunner(sink logger.ILogger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{sink: sink, timeout: timeout}
}

// Go runs fn on its own goroutine with a fresh context bounded by the runner timeout.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Go(func() {
		var pc panics.Catcher
		pc.Try(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()

			if err := fn(ctx); err != nil {
				r.sink.Error("BACKGROUND", "Task failed", map[string]interface{}{
					"task":  name,
					"error": err.Error(),
				})
			}
		})
		if rec := pc.Recovered(); rec != nil {
			r.sink.Error("BACKGROUND", "Task panicked", map[string]interface{}{
				"task":  name,
				"panic": rec.String(),
			})
		}
	})
}

// Schedule adapts a plain func for callers such as the cache sweeper.
func (r *Runner) Schedule(name string, fn func()) {
	r.Go(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Wait blocks until every task started so far has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown waits for in-flight tasks or gives up when ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
