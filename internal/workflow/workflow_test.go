package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imtaco/watch-party/internal/log"
)

func TestWithEitherDoneCancelsOnSecondContext(t *testing.T) {
	b, cancelB := context.WithCancel(context.Background())
	ctx, cancel := WithEitherDone(context.Background(), b)
	defer cancel()

	cancelB()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context not cancelled")
	}
}

func TestWithEitherDoneCancelsOnFirstContext(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	ctx, cancel := WithEitherDone(a, context.Background())
	defer cancel()

	cancelA()
	<-ctx.Done()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWaitGracefulShutdownRunsAction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	WaitGracefulShutdown(ctx, log.NewTest(t), func(context.Context) {
		ran.Store(true)
	}, time.Second)

	require.True(t, ran.Load())
}

func TestWaitGracefulShutdownTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	WaitGracefulShutdown(ctx, log.NewNop(), func(context.Context) {
		<-release
	}, 50*time.Millisecond)

	require.Less(t, time.Since(start), time.Second)
}
