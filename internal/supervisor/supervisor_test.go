package supervisor

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desp-aas/project-management/internal/metrics"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestGoRunsAndRecordsResults(t *testing.T) {
	s := New()
	var ran atomic.Int32
	finished := func(name, result string) float64 {
		return testutil.ToFloat64(metrics.TasksFinished.WithLabelValues(name, result))
	}
	okBefore := finished("sup-test-ok", "ok")
	errBefore := finished("sup-test-err", "error")
	panicBefore := finished("sup-test-panic", "panic")

	require.NoError(t, s.Go("sup-test-ok", func(context.Context) error { ran.Add(1); return nil }))
	require.NoError(t, s.Go("sup-test-err", func(context.Context) error { return errors.New("boom") }))
	require.NoError(t, s.Go("sup-test-panic", func(context.Context) error { panic("kaboom") }))
	s.Wait()

	require.Equal(t, int32(1), ran.Load())
	require.Equal(t, okBefore+1, finished("sup-test-ok", "ok"))
	require.Equal(t, errBefore+1, finished("sup-test-err", "error"))
	require.Equal(t, panicBefore+1, finished("sup-test-panic", "panic"))
	require.Zero(t, testutil.ToFloat64(metrics.TasksInFlight.WithLabelValues("sup-test-ok")))
}

func TestShutdownCancelsAndDrains(t *testing.T) {
	s := New()
	started := make(chan struct{})
	var sawCancel atomic.Bool

	require.NoError(t, s.Go("sup-test-blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.True(t, sawCancel.Load())

	require.ErrorIs(t, s.Go("sup-test-late", func(context.Context) error { return nil }), ErrClosed)
}

func TestShutdownDeadline(t *testing.T) {
	s := New()
	release := make(chan struct{})
	require.NoError(t, s.Go("sup-test-stuck", func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	s.Wait()
}
