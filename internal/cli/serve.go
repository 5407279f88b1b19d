package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/export"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// maxAccountListBytes bounds the request body of POST /v1/runs.
const maxAccountListBytes = 1 << 20

// serveCommand creates the serve command, which exposes runs over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve runs over HTTP",
		Long: `Serve runs over HTTP.

  GET  /healthz   liveness probe
  POST /v1/runs   body: account list (same format as the ids file)
                  query: fast, workers, day_range, reviews, release_size,
                         last_update
                  returns the run result as JSON

Runs are executed one at a time because they share the request throttle.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Serve.Addr
			}
			runner, closer, err := c.newRunner(cmd.Context(), c.Config.Cache)
			if err != nil {
				return err
			}
			defer closer.Close()

			s := &server{runner: runner, base: c.Config.PipelineOptions(), logger: c.Logger}
			return listenAndServe(cmd.Context(), addr, s.routes(), c.Logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func listenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// =============================================================================
// Handlers
// =============================================================================

type server struct {
	runner *pipeline.Runner
	base   pipeline.Options
	logger *log.Logger

	// mu serializes runs.
	mu sync.Mutex
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.handleCreateRun)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	opts, err := runOptionsFromQuery(r.URL.Query(), s.base)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := accounts.Parse(http.MaxBytesReader(w, r.Body, maxAccountListBytes), s.logger)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("run requested", "request_id", middleware.GetReqID(r.Context()), "entries", len(entries))
	res, err := s.runner.Execute(r.Context(), entries, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := export.NewJSONWriterSink(w).Write(r.Context(), res); err != nil {
		s.logger.Warn("write response", "err", err)
	}
}

// runOptionsFromQuery layers query parameters on top of base.
func runOptionsFromQuery(q url.Values, base pipeline.Options) (pipeline.Options, error) {
	opts := base
	bools := []struct {
		key  string
		skip *bool
	}{
		{"reviews", &opts.SkipReviews},
		{"release_size", &opts.SkipReleaseSize},
		{"last_update", &opts.SkipLastUpdate},
	}
	for _, b := range bools {
		if v := q.Get(b.key); v != "" {
			on, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s must be a boolean, got %q", b.key, v)
			}
			*b.skip = !on
		}
	}
	if v := q.Get("fast"); v != "" {
		fast, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "fast must be a boolean, got %q", v)
		}
		opts.Fast = fast
	}
	for key, dst := range map[string]*int{"workers": &opts.Workers, "day_range": &opts.DayRange} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer, got %q", key, v)
			}
			*dst = n
		}
	}
	// Validate a copy so the runner still supplies its logger.
	check := opts
	if err := check.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidAccount, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeNoAccounts, errors.ErrCodeNoItems:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
