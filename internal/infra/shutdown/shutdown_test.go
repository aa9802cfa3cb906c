package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(5 * time.Second)
	if h == nil {
		t.Fatal("NewHandler returned nil")
	}
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
	if h.hooks == nil {
		t.Error("hooks should be initialized")
	}

	select {
	case <-h.Done():
		t.Error("Done channel should not be closed initially")
	default:
	}
}

func recorder() (func(int) func(context.Context) error, func() []int) {
	var (
		mu    sync.Mutex
		order []int
	)
	add := func(n int) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}
	}
	get := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
	return add, get
}

func TestHandler_WaitContext_ReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)
	add, order := recorder()
	h.OnShutdown("one", add(1))
	h.OnShutdown("two", add(2))
	h.OnShutdown("three", add(3))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.WaitContext(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("WaitContext() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitContext() did not complete in time")
	}

	got := order()
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Errorf("hooks called in wrong order: %v, want [3 2 1]", got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after shutdown")
	}
}

func TestHandler_Wait_WithSignal(t *testing.T) {
	h := NewHandler(5 * time.Second)
	add, order := recorder()
	h.OnShutdown("one", add(1))

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait time to set up signal handler
	time.Sleep(50 * time.Millisecond)
	syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}
	if len(order()) != 1 {
		t.Errorf("hook not called")
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(5 * time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	ran := false
	h.OnShutdown("last", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })
	h.OnShutdown("a", func(context.Context) error { return errA })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook should not stop later hooks")
	}
}

func TestHandler_ShutdownOnce(t *testing.T) {
	h := NewHandler(time.Second)
	calls := 0
	h.OnShutdown("count", func(context.Context) error { calls++; return nil })

	h.Shutdown()
	h.Shutdown()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want deadline exceeded", err)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(ctx context.Context) error {
				return nil
			})
		}()
	}

	wg.Wait()

	h.mu.Lock()
	if len(h.hooks) != numGoroutines {
		t.Errorf("expected %d hooks, got %d", numGoroutines, len(h.hooks))
	}
	h.mu.Unlock()
}
