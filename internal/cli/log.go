package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/steamfam/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Fetched 412 games (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports pipeline and HTTP events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h *logHooks) OnStageStart(_ context.Context, stage string, n int) {
	h.logger.Debug("stage start", "stage", stage, "n", n)
}

func (h *logHooks) OnStageComplete(_ context.Context, stage string, n int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("stage failed", "stage", stage, "n", n, "elapsed", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("stage done", "stage", stage, "n", n, "elapsed", d.Round(time.Millisecond))
}

func (h *logHooks) OnAccountFailed(_ context.Context, label, id, reason string) {
	h.logger.Debug("account failed", "label", label, "id", id, "reason", reason)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path, "status", status, "elapsed", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request error", "method", method, "host", host, "path", path, "err", err)
}

func (h *logHooks) OnRetry(_ context.Context, host, path string, attempt int, err error) {
	h.logger.Debug("retry", "host", host, "path", path, "attempt", attempt, "err", err)
}

var (
	_ observability.PipelineHooks = (*logHooks)(nil)
	_ observability.HTTPHooks     = (*logHooks)(nil)
)
