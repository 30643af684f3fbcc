package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"certgen/frontend/internal/config"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
	seen  chan struct{}
}

func (c *countingExpirer) ExpireIfNeeded(ctx context.Context) (bool, error) {
	n := c.calls.Add(1)
	if n == 3 {
		close(c.seen)
	}
	return n == 1, c.err
}

func TestSessionExpiryJobTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := &countingExpirer{seen: make(chan struct{})}

	StartSessionExpiryJob(ctx, config.Config{SessionCheckInterval: 5 * time.Millisecond}, exp, nil)

	select {
	case <-exp.seen:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the job to tick, got %d calls", exp.calls.Load())
	}
}

func TestSessionExpiryJobSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := &countingExpirer{seen: make(chan struct{}), err: errors.New("storage down")}

	StartSessionExpiryJob(ctx, config.Config{SessionCheckInterval: 5 * time.Millisecond}, exp, nil)

	select {
	case <-exp.seen:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the job to keep ticking after errors")
	}
}

func TestSessionExpiryJobStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exp := &countingExpirer{seen: make(chan struct{})}
	cancel()

	StartSessionExpiryJob(ctx, config.Config{SessionCheckInterval: 5 * time.Millisecond}, exp, nil)
	time.Sleep(50 * time.Millisecond)
	if n := exp.calls.Load(); n > 1 {
		t.Fatalf("expected the job to stop, got %d calls", n)
	}
}
