// Package background runs best-effort work off the request path.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner starts detached tasks with their own bounded context. A failing
// or panicking task is logged and never affects the caller.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger
}

func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{timeout: timeout, logger: logger}
}

// Go runs fn in a new goroutine.
func (r *Runner) Go(name string, fn func(ctx context.Context) error, fields ...zap.Field) {
	logFields := make([]zap.Field, 0, len(fields)+1)
	logFields = append(logFields, zap.String("task", name))
	logFields = append(logFields, fields...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("background task panicked", append(logFields, zap.Any("panic", p))...)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			r.logger.Warn("background task failed", append(logFields, zap.Error(err))...)
			return
		}
		r.logger.Debug("background task done", append(logFields, zap.Duration("took", time.Since(start)))...)
	}()
}

// Wait blocks until every started task returned or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
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
