package httputil

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestThrottle_Spacing(t *testing.T) {
	const (
		n     = 5
		delay = 20 * time.Millisecond
	)
	th := NewThrottle(Delays{HostStore: delay}, 0)

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := th.Wait(context.Background(), HostStore); err != nil {
				t.Errorf("Wait() error: %v", err)
				return
			}
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	first, last := starts[0], starts[0]
	for _, s := range starts[1:] {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	if got, want := last.Sub(first), (n-1)*delay; got < want-2*time.Millisecond {
		t.Errorf("span = %v, want at least %v", got, want)
	}
}

func TestThrottle_SequentialSpacing(t *testing.T) {
	const delay = 15 * time.Millisecond
	th := NewThrottle(Delays{HostAPI: delay}, 0)

	start := time.Now()
	for range 4 {
		if err := th.Wait(context.Background(), HostAPI); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 3*delay-2*time.Millisecond {
		t.Errorf("elapsed = %v, want at least %v", elapsed, 3*delay)
	}
}

func TestThrottle_FirstCallDoesNotSleep(t *testing.T) {
	th := NewThrottle(Delays{HostStore: time.Hour}, 0)

	start := time.Now()
	if err := th.Wait(context.Background(), HostStore); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("first Wait() took %v, want no sleep", elapsed)
	}
}

func TestThrottle_HostsAreIndependent(t *testing.T) {
	th := NewThrottle(Delays{HostStore: time.Hour, HostCommunity: time.Hour}, 0)
	ctx := context.Background()

	_ = th.Wait(ctx, HostStore)
	start := time.Now()
	if err := th.Wait(ctx, HostCommunity); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("community bucket should not be delayed by store bucket")
	}
}

func TestThrottle_UnknownHostNotPaced(t *testing.T) {
	th := NewThrottle(Delays{}, 0)
	for range 3 {
		if sleep := th.reserve("other"); sleep != 0 {
			t.Fatalf("reserve() = %v, want 0", sleep)
		}
	}
}

func TestThrottle_OptimisticReservation(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	now := base
	th := NewThrottle(Delays{HostStore: time.Second}, 0)
	th.now = func() time.Time { return now }

	if got := th.reserve(HostStore); got != 0 {
		t.Fatalf("first reserve() = %v, want 0", got)
	}
	// Three callers arriving at the same instant queue up consecutive slots.
	for i, want := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second} {
		if got := th.reserve(HostStore); got != want {
			t.Errorf("reserve #%d = %v, want %v", i+2, got, want)
		}
	}
}

func TestThrottle_JitterBounded(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	th := NewThrottle(Delays{HostStore: 100 * time.Millisecond}, 50*time.Millisecond)
	th.now = func() time.Time { return now }
	th.randN = func(n time.Duration) time.Duration { return n - 1 }

	th.reserve(HostStore)
	got := th.reserve(HostStore)
	if want := 150 * time.Millisecond; got != want {
		t.Errorf("reserve() = %v, want %v", got, want)
	}
}

func TestThrottle_Configure(t *testing.T) {
	th := NewThrottle(SafeDelays, SafeJitter)
	if got := th.Delay(HostStore); got != 600*time.Millisecond {
		t.Errorf("Delay(store) = %v, want 600ms", got)
	}
	th.Configure(FastDelays, FastJitter)
	if got := th.Delay(HostStore); got != 350*time.Millisecond {
		t.Errorf("Delay(store) after Configure = %v, want 350ms", got)
	}
}

func TestThrottle_WaitCancelled(t *testing.T) {
	th := NewThrottle(Delays{HostStore: time.Hour}, 0)
	_ = th.Wait(context.Background(), HostStore)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := th.Wait(ctx, HostStore); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
