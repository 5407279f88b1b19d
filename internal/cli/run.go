package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/internal/config"
	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/export"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// runFlags holds the flag values of the run command. Only flags the user
// set override the loaded configuration.
type runFlags struct {
	workers      int
	dayRange     int
	fast         bool
	safe         bool
	noReviews    bool
	noRelease    bool
	noLastUpdate bool
	format       string
	output       string
	sqlite       string
	mongoURI     string
	cache        bool
	redisURL     string
}

// runCommand creates the run command: the full multi-account pipeline.
func (c *CLI) runCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [ids-file]",
		Short: "Aggregate the libraries of every account in an ids file",
		Long: `Aggregate the libraries of every account listed in an ids file.

Each line is "Label: identifier", where the identifier is a SteamID64 or a
community profile URL (/profiles/<id> or /id/<name>). Blank lines and lines
starting with # are ignored. Without an argument the configured ids file
(default ids.txt) is used.`,
		Example: `  steamfam run
  steamfam run family.txt --fast
  steamfam run family.txt --no-reviews --format json -o family.json
  steamfam run family.txt --sqlite runs.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.IDsFile = args[0]
			}
			return c.runPipeline(cmd.Context(), cfg)
		},
	}

	f.register(cmd)
	return cmd
}

// register binds the run flags to cmd.
func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVarP(&f.workers, "workers", "w", 0, fmt.Sprintf("enrichment workers (default %d safe, %d fast)", pipeline.DefaultWorkers, pipeline.FastWorkers))
	fl.IntVar(&f.dayRange, "day-range", 0, fmt.Sprintf("recent review window in days (default %d)", pipeline.DefaultDayRange))
	fl.BoolVar(&f.fast, "fast", false, "shorter request spacing and more workers")
	fl.BoolVar(&f.safe, "safe", true, "conservative request spacing (--safe=false equals --fast)")
	fl.BoolVar(&f.noReviews, "no-reviews", false, "skip review summaries")
	fl.BoolVar(&f.noRelease, "no-release-size", false, "skip release year and install size")
	fl.BoolVar(&f.noLastUpdate, "no-last-update", false, "skip last update year")
	fl.StringVarP(&f.format, "format", "f", "", "output format: csv, json (default csv)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default "+export.FilePrefix+"<timestamp>.<format>)")
	fl.StringVar(&f.sqlite, "sqlite", "", "also store the run in this SQLite database")
	fl.StringVar(&f.mongoURI, "mongo-uri", "", "also store the run in this MongoDB")
	fl.BoolVar(&f.cache, "cache", false, "cache HTTP responses on disk")
	fl.StringVar(&f.redisURL, "redis-url", "", "cache HTTP responses in Redis")
}

// apply layers the flags the user set on top of cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("workers") {
		cfg.Run.Workers = f.workers
	}
	if fl.Changed("day-range") {
		cfg.Run.DayRange = f.dayRange
	}
	if fl.Changed("safe") {
		cfg.Run.Fast = !f.safe
	}
	if fl.Changed("fast") {
		cfg.Run.Fast = f.fast
	}
	if f.noReviews {
		cfg.Run.Reviews = false
	}
	if f.noRelease {
		cfg.Run.ReleaseSize = false
	}
	if f.noLastUpdate {
		cfg.Run.LastUpdate = false
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.output != "" {
		cfg.Output.Path = f.output
	}
	if f.sqlite != "" {
		cfg.Output.SQLite = f.sqlite
	}
	if f.mongoURI != "" {
		cfg.Output.MongoURI = f.mongoURI
	}
	if f.cache && cfg.Cache.Dir == "" {
		cfg.Cache.Dir = config.DefaultCacheDir()
	}
	if f.redisURL != "" {
		cfg.Cache.RedisURL = f.redisURL
	}
	return cfg.Validate()
}

// runPipeline executes a run and writes its result to the configured sinks.
func (c *CLI) runPipeline(ctx context.Context, cfg config.Config) error {
	entries, err := accounts.ParseFile(cfg.IDsFile, c.Logger)
	if err != nil {
		return err
	}

	printInfo("Run settings")
	printKeyValue("  IDs file", cfg.IDsFile)
	printKeyValue("  Mode", modeName(cfg.Run.Fast))
	printKeyValue("  Reviews", onOff(cfg.Run.Reviews))
	printKeyValue("  Release+Size", onOff(cfg.Run.ReleaseSize))
	printKeyValue("  Last update year", onOff(cfg.Run.LastUpdate))
	printNewline()

	runner, closer, err := c.newRunner(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closer.Close()

	sink, paths, err := openSinks(ctx, cfg.Output, time.Now())
	if err != nil {
		return err
	}
	defer sink.Close()

	res, err := runner.Execute(ctx, entries, cfg.PipelineOptions())
	if err != nil {
		return err
	}
	if err := sink.Write(ctx, res); err != nil {
		return err
	}

	printNewline()
	printSuccess("Exported %d unique games", len(res.Rows))
	for _, p := range paths {
		printFile(p)
	}
	printNewline()
	writeReport(os.Stdout, res)
	printNewline()
	printNextStep("Run again", "steamfam run "+cfg.IDsFile)
	return nil
}

// openSinks opens the file sink for the configured format plus any
// database sinks. It returns the paths written to for display.
func openSinks(ctx context.Context, oc config.OutputConfig, now time.Time) (export.Sink, []string, error) {
	path := oc.Path
	if path == "" {
		path = export.DefaultFileName(now, oc.Format)
	}

	var sinks []export.Sink
	switch oc.Format {
	case config.FormatJSON:
		sinks = append(sinks, export.NewJSONSink(path))
	default:
		sinks = append(sinks, export.NewCSVSink(path))
	}
	paths := []string{path}

	if oc.SQLite != "" {
		s, err := export.NewSQLiteSink(ctx, oc.SQLite)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
		paths = append(paths, s.Path())
	}
	if oc.MongoURI != "" {
		s, err := export.NewMongoSink(ctx, oc.MongoURI, oc.MongoDB)
		if err != nil {
			export.Multi(sinks...).Close()
			return nil, nil, err
		}
		db := oc.MongoDB
		if db == "" {
			db = export.DefaultMongoDatabase
		}
		sinks = append(sinks, s)
		paths = append(paths, "mongodb "+db+"."+export.DefaultMongoCollection)
	}
	return export.Multi(sinks...), paths, nil
}

func modeName(fast bool) string {
	if fast {
		return "fast"
	}
	return "safe"
}
