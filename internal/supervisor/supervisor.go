// Package supervisor runs detached units of work that outlive the request that
// scheduled them. Failures and panics are logged and counted, never propagated.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/desp-aas/project-management/internal/metrics"
	"github.com/desp-aas/project-management/pkg/logger"
	"go.uber.org/zap"
)

// Task is a unit of work; ctx is cancelled when the supervisor shuts down.
type Task func(ctx context.Context) error

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New() *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{ctx: ctx, cancel: cancel}
}

// ErrClosed is returned by Go after Shutdown started.
var ErrClosed = errors.New("supervisor is shutting down")

// Go starts task in the background under name.
func (s *Supervisor) Go(name string, task Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.TasksInFlight.WithLabelValues(name).Inc()
	go s.run(name, task)
	return nil
}

func (s *Supervisor) run(name string, task Task) {
	start := time.Now()
	result := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			result = "panic"
			logger.L().Error("detached task panicked",
				zap.String("task", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		metrics.TasksInFlight.WithLabelValues(name).Dec()
		metrics.TasksFinished.WithLabelValues(name, result).Inc()
		metrics.TaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		s.wg.Done()
	}()

	if err := task(s.ctx); err != nil {
		result = "error"
		logger.L().Error("detached task failed", zap.String("task", name), zap.Error(err))
		return
	}
	logger.L().Debug("detached task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}

// Wait blocks until every started task returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Shutdown refuses new tasks, cancels running ones and waits for them until ctx ends.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("supervisor drain: %w", ctx.Err())
	}
}
