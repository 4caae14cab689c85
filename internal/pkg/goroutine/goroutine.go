// Package goroutine runs background work with a concurrency cap and panic
// recovery, and lets shutdown wait for it.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/gootp/internal/pkg/stacktrace"
)

const DefaultMaxGoroutine int = 100

var ErrPanic = errors.New("goroutine: panic recovered")

type Manager struct {
	wg      sync.WaitGroup
	sema    chan struct{}
	closed  atomic.Bool
	running atomic.Int64

	// guards wg.Add against Wait
	stateMu sync.RWMutex

	mu   sync.Mutex
	errs []error
}

func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}
	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go runs f when a slot is free. It reports false, and does not run f, when
// the manager is closed or full.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed.Load() {
		slog.WarnContext(ctx, "goroutine manager is closed, skipping new goroutine")
		return false
	}

	select {
	case g.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, failed to start new goroutine")
		return false
	}

	g.running.Inc()
	g.wg.Go(func() {
		defer func() {
			g.running.Dec()
			<-g.sema

			if rvr := recover(); rvr != nil {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "panic", rvr, "stack", stacktrace.Internal(2))
				g.collect(fmt.Errorf("%w: %v", ErrPanic, rvr))
			}
		}()

		if err := ctx.Err(); err != nil {
			slog.WarnContext(ctx, "goroutine canceled", "because", err)
			return
		}

		if err := f(ctx); err != nil {
			g.collect(err)
		}
	})

	return true
}

func (g *Manager) collect(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Running is the number of goroutines currently executing.
func (g *Manager) Running() int64 { return g.running.Load() }

// Wait closes the manager, blocks until every goroutine returns and joins
// their errors.
func (g *Manager) Wait() error {
	g.stateMu.Lock()
	g.closed.Store(true)
	g.stateMu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
