package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/internal/config"
	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/cache"
	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/observability"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// isolate points config and cache lookups at a temp dir and makes it the
// working directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Cleanup(observability.Reset)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "steamfam.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and returns what it wrote to
// the command's output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"run", "library", "resolve", "setup", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "steamfam version") {
		t.Errorf("version output = %q", out)
	}
}

func TestVerboseFromConfig(t *testing.T) {
	dir := isolate(t)
	cfgPath := writeConfig(t, dir, "verbose = true\n")

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"--config", cfgPath, "cache", "path"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want debug", c.Logger.GetLevel())
	}
}

func TestMissingConfigFile(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--config", "nope.toml", "cache", "path")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestCompletionWritesToCommandOutput(t *testing.T) {
	isolate(t)
	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "steamfam") {
		t.Errorf("bash completion should mention steamfam, got %d bytes", len(out))
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("unsupported shell should be rejected")
	}
}

func TestRunFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name: "no flags keeps config",
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Run.Fast || !cfg.Run.Reviews || cfg.Output.Format != config.FormatCSV {
					t.Errorf("cfg = %+v", cfg)
				}
			},
		},
		{
			name: "safe=false selects fast",
			args: []string{"--safe=false"},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Run.Fast {
					t.Error("Fast should be set")
				}
			},
		},
		{
			name: "toggles and output",
			args: []string{"--no-reviews", "--no-last-update", "-w", "9", "--day-range", "14", "-f", "json", "-o", "out.json"},
			check: func(t *testing.T, cfg config.Config) {
				r := cfg.Run
				if r.Reviews || r.LastUpdate || !r.ReleaseSize || r.Workers != 9 || r.DayRange != 14 {
					t.Errorf("run = %+v", r)
				}
				if cfg.Output.Format != config.FormatJSON || cfg.Output.Path != "out.json" {
					t.Errorf("output = %+v", cfg.Output)
				}
			},
		},
		{
			name: "cache flag uses default dir",
			args: []string{"--cache"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Cache.Dir != config.DefaultCacheDir() {
					t.Errorf("cache dir = %q", cfg.Cache.Dir)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f runFlags
			cmd := &cobra.Command{}
			f.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg := config.Default()
			if err := f.apply(cmd, &cfg); err != nil {
				t.Fatalf("apply() error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestRunFlagsRejectInvalid(t *testing.T) {
	var f runFlags
	cmd := &cobra.Command{}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--format", "xml"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := f.apply(cmd, &cfg); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestRunMissingIDsFile(t *testing.T) {
	isolate(t)
	_, err := execute(t, "run", "missing.txt")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
	if errors.ExitCode(err) != 2 {
		t.Errorf("exit code = %d, want 2", errors.ExitCode(err))
	}
}

func TestRunNoValidLines(t *testing.T) {
	dir := isolate(t)
	ids := filepath.Join(dir, "ids.txt")
	if err := os.WriteFile(ids, []byte("# nobody here\njust text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "run")
	if !errors.Is(err, errors.ErrCodeNoAccounts) {
		t.Fatalf("err = %v, want NO_ACCOUNTS", err)
	}
	if errors.UserMessage(err) != pipeline.NoAccountsMessage {
		t.Errorf("message = %q", errors.UserMessage(err))
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	c, err := openCache(ctx, config.CacheConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("default cache = %T, want NullCache", c)
	}

	c, err = openCache(ctx, config.CacheConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("dir cache = %T, want *FileCache", c)
	}
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://steamcommunity.com/id/gaben/", "gaben"},
		{"https://steamcommunity.com/profiles/76561197960287930", "76561197960287930"},
		{"https://steamcommunity.com/", "fallback"},
	}
	for _, tt := range tests {
		if got := labelFor(tt.url, "fallback"); got != tt.want {
			t.Errorf("labelFor(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestWriteReport(t *testing.T) {
	rows := []pipeline.Row{
		{AppID: "10", Name: "Alpha", Owners: 2, ReviewSummary: catalog.Ptr("Positive"), ReleaseYear: catalog.Ptr(2004)},
		{AppID: "20", Name: "beta", Owners: 1, ReviewSummary: catalog.Ptr(catalog.NoReviews)},
		{AppID: "30", Name: "gamma", Owners: 1, ReviewSummary: catalog.Ptr(catalog.NoReviews)},
	}
	res := &pipeline.Result{
		Features:         pipeline.Features{Reviews: true, ReleaseSize: true},
		Rows:             rows,
		Coverage:         pipeline.ComputeCoverage(rows),
		TypeCounts:       map[catalog.Kind]int{catalog.KindGame: 3, catalog.KindDLC: 1},
		ExcludedDelisted: 1,
		FailedAccounts:   []pipeline.FailedAccount{{Label: "Carol", ID: "3", Reason: "No games visible"}},
		OKAccounts:       2,
		TotalAccounts:    3,
		Stats:            pipeline.Stats{Items: 3, Reviews: 3 * time.Second, Total: 5 * time.Second},
	}

	var buf bytes.Buffer
	writeReport(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"2/3",
		"Carol (3) - No games visible",
		"dlc 1",
		"game 3",
		"excluded 1 delisted",
		"~1.000s/item",
		"skipped",
		"5.00s",
		"release_year",
		"1/3",
		"only 33.3% had release_year",
		"only 0.0% had approx_install_size_gb",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "had last_update_year") {
		t.Error("no hint expected for a disabled feature")
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m SetupModel, keys ...string) (SetupModel, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model = m
	for _, k := range keys {
		next, cmd = next.Update(key(k))
	}
	return next.(SetupModel), cmd
}

func TestSetupModel(t *testing.T) {
	m := NewSetupModel(config.Default())

	// Mode, then workers +2, then day range -1, then reviews off.
	m, _ = press(m, "space", "down", "right", "right", "down", "left", "down", "space")
	if !m.Config.Run.Fast {
		t.Error("mode should be fast")
	}
	if m.Config.Run.Workers != 2 {
		t.Errorf("workers = %d, want 2", m.Config.Run.Workers)
	}
	if m.Config.Run.DayRange != pipeline.DefaultDayRange-1 {
		t.Errorf("day range = %d, want %d", m.Config.Run.DayRange, pipeline.DefaultDayRange-1)
	}
	if m.Config.Run.Reviews {
		t.Error("reviews should be off")
	}
	if !strings.Contains(m.View(), "fast") {
		t.Error("view should show the mode")
	}

	m, cmd := press(m, "s")
	if !m.Saved || cmd == nil {
		t.Error("s should save and quit")
	}
}

func TestSetupModelBounds(t *testing.T) {
	m := NewSetupModel(config.Default())
	m, _ = press(m, "up", "down", "left", "left")
	if m.Cursor != 1 || m.Config.Run.Workers != 0 {
		t.Errorf("cursor = %d workers = %d, want 1 and 0", m.Cursor, m.Config.Run.Workers)
	}
	for range len(setupFields) + 3 {
		m, _ = press(m, "down")
	}
	if m.Cursor != len(setupFields)-1 {
		t.Errorf("cursor = %d, want last field", m.Cursor)
	}

	m, cmd := press(m, "esc")
	if m.Saved || cmd == nil {
		t.Error("esc should quit without saving")
	}
}

func TestResolveAll(t *testing.T) {
	r := accounts.NewResolver(nil, nil)
	var out bytes.Buffer
	err := resolveAll(context.Background(), r, []string{
		"76561197960287930",
		"https://steamcommunity.com/profiles/76561197960287931/",
		"https://steamcommunity.com/id/somebody",
	}, &out)

	if !errors.Is(err, errors.ErrCodeUnresolvable) {
		t.Errorf("err = %v, want UNRESOLVABLE_IDENTITY", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "\t76561197960287931") {
		t.Errorf("output = %q", out.String())
	}
}
