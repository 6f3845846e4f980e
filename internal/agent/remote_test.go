package agent

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWatchLoopQuitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan struct{})
	stop := watchLoop(ctx, func() { close(quit) })

	cancel()
	<-quit
	stop()
}

func TestWatchLoopIdleAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var quits atomic.Int32
	stop := watchLoop(ctx, func() { quits.Add(1) })

	// The loop ends on its own before the caller cancels.
	stop()
	cancel()
	if n := quits.Load(); n != 0 {
		t.Errorf("quit called %d times after stop", n)
	}
}
