// Package httputil provides request pacing and retry helpers shared by the
// upstream clients.
//
// # Throttle
//
// [Throttle] spaces request starts per logical host class ([HostStore],
// [HostCommunity], [HostAPI]). One Throttle is created per pipeline run and
// handed to every client so that all workers share the same buckets:
//
//	th := httputil.NewThrottle(httputil.SafeDelays, httputil.SafeJitter)
//	if err := th.Wait(ctx, httputil.HostStore); err != nil {
//	    return err
//	}
//	// issue the request
//
// # Retry
//
// [Retry] re-runs an operation whose error is wrapped in [RetryableError]
// (transport failures, 429 and 503 responses), waiting with exponential
// backoff plus a small additive jitter between attempts:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    return fetch()
//	})
//
// Errors that are not wrapped are returned after the first attempt.
package httputil
