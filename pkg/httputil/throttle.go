package httputil

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// HostClass names a logical upstream host. Every host class has its own
// pacing bucket in a [Throttle].
type HostClass string

const (
	HostStore     HostClass = "store"     // store.steampowered.com
	HostCommunity HostClass = "community" // steamcommunity.com
	HostAPI       HostClass = "api"       // api.steampowered.com
)

// Delays maps each host class to the minimum spacing between request starts.
type Delays map[HostClass]time.Duration

// SafeDelays are the conservative defaults used unless fast mode is requested.
var SafeDelays = Delays{
	HostStore:     600 * time.Millisecond,
	HostCommunity: 250 * time.Millisecond,
	HostAPI:       200 * time.Millisecond,
}

// FastDelays trade politeness for throughput.
var FastDelays = Delays{
	HostStore:     350 * time.Millisecond,
	HostCommunity: 150 * time.Millisecond,
	HostAPI:       150 * time.Millisecond,
}

const (
	SafeJitter = 120 * time.Millisecond
	FastJitter = 100 * time.Millisecond
)

// Throttle paces outbound requests per host class.
//
// Wait reserves the next slot optimistically: the bucket's timestamp is
// advanced to the caller's would-be start time while the lock is held, and
// the caller sleeps after releasing it. Concurrent callers therefore queue up
// non-overlapping slots without serializing on each other's sleep. A caller
// that reserves a slot and then runs late can push later callers back slightly
// further than necessary; the goal is to avoid bursts, not precise scheduling.
//
// A Throttle is safe for concurrent use. The zero value is not usable; create
// one with [NewThrottle].
type Throttle struct {
	mu     sync.Mutex
	delays Delays
	jitter time.Duration
	last   map[HostClass]time.Time

	now   func() time.Time
	randN func(time.Duration) time.Duration
}

// NewThrottle creates a Throttle with the given per-host delays and jitter ceiling.
// Host classes missing from delays are not paced.
func NewThrottle(delays Delays, jitter time.Duration) *Throttle {
	t := &Throttle{
		last:  make(map[HostClass]time.Time),
		now:   time.Now,
		randN: rand.N[time.Duration],
	}
	t.Configure(delays, jitter)
	return t
}

// Configure replaces the per-host delays and the jitter ceiling. It is meant to
// be called before concurrent work starts, but is safe at any time.
func (t *Throttle) Configure(delays Delays, jitter time.Duration) {
	d := make(Delays, len(delays))
	for k, v := range delays {
		d[k] = v
	}
	t.mu.Lock()
	t.delays = d
	t.jitter = max(jitter, 0)
	t.mu.Unlock()
}

// Delay returns the configured minimum delay for host.
func (t *Throttle) Delay(host HostClass) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delays[host]
}

// Wait blocks until a request to host may start. It returns ctx.Err() if the
// context is cancelled while sleeping; the reserved slot is not given back.
func (t *Throttle) Wait(ctx context.Context, host HostClass) error {
	sleep := t.reserve(host)
	if sleep <= 0 {
		return nil
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Throttle) reserve(host HostClass) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	need := t.delays[host] - now.Sub(t.last[host])
	if need <= 0 {
		t.last[host] = now
		return 0
	}
	if t.jitter > 0 {
		need += t.randN(t.jitter + 1)
	}
	t.last[host] = now.Add(need)
	return need
}
