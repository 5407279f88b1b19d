// Package cli implements the steamfam command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/internal/config"
	"github.com/matzehuels/steamfam/pkg/buildinfo"
	"github.com/matzehuels/steamfam/pkg/cache"
	"github.com/matzehuels/steamfam/pkg/integrations"
	"github.com/matzehuels/steamfam/pkg/observability"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "steamfam"

	// redisKeyPrefix namespaces response cache keys in a shared Redis.
	redisKeyPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config config.Config

	errOut     io.Writer
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		errOut: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "steamfam combines the Steam libraries of a family into one table",
		Long: `steamfam reads a list of Steam accounts, fetches every public library,
and writes one row per owned game with owner counts, combined playtime,
review summaries, release year, install size and last update year.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.libraryCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.setupCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration and applies the log level. It runs
// before every subcommand.
func (c *CLI) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if c.verbose || cfg.Verbose {
		c.SetLogLevel(LogDebug)
	}
	observability.SetPipelineHooks(&logHooks{logger: c.Logger})
	observability.SetHTTPHooks(&logHooks{logger: c.Logger})
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newTransport builds the shared upstream transport with the configured
// response cache. Callers close the returned transport's cache.
func (c *CLI) newTransport(ctx context.Context, cc config.CacheConfig) (*integrations.Transport, error) {
	t := integrations.NewTransport()
	ch, err := openCache(ctx, cc)
	if err != nil {
		return nil, err
	}
	t.Cache = ch
	if cc.TTL.Duration > 0 {
		t.CacheTTL = cc.TTL.Duration
	}
	return t, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cc config.CacheConfig) (*pipeline.Runner, io.Closer, error) {
	t, err := c.newTransport(ctx, cc)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewRunner(t, c.Logger), t.Cache, nil
}

// openCache picks Redis when a URL is configured, else the file cache when
// a directory is configured, else no cache.
func openCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	switch {
	case cc.RedisURL != "":
		return cache.NewRedisCache(ctx, cc.RedisURL, redisKeyPrefix)
	case cc.Dir != "":
		return cache.NewFileCache(cc.Dir)
	default:
		return cache.NewNullCache(), nil
	}
}

// =============================================================================
// Helpers
// =============================================================================

// onOff renders a feature toggle.
func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// labelFor returns the path segment after /id/ or /profiles/ in a profile
// URL, or fallback.
func labelFor(profileURL, fallback string) string {
	for _, marker := range []string{"/id/", "/profiles/"} {
		if _, rest, ok := strings.Cut(profileURL, marker); ok {
			if seg, _, _ := strings.Cut(rest, "/"); seg != "" {
				return seg
			}
		}
	}
	return fallback
}
