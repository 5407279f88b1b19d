package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/internal/config"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// setupCommand creates the interactive configuration command.
func (c *CLI) setupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Choose run settings interactively and save them",
		Long: `Choose run settings in an interactive form and save them to the config
file. Later runs start from the saved settings; flags still override them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = config.DefaultPath()
			}

			final, err := tea.NewProgram(NewSetupModel(c.Config), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			m := final.(SetupModel)
			if !m.Saved {
				printInfo("Setup cancelled, nothing saved")
				return nil
			}
			if err := m.Config.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, m.Config); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			printSuccess("Saved settings")
			printFile(path)
			printNextStep("Start a run", "steamfam run")
			return nil
		},
	}
}

// =============================================================================
// SetupModel - Interactive settings form
// =============================================================================

// setupField is one adjustable line of the form.
type setupField struct {
	label string
	value func(*config.Config) string
	// toggle flips the field; adjust moves it by delta. Either may be nil.
	toggle func(*config.Config)
	adjust func(*config.Config, int)
}

var setupFields = []setupField{
	{
		label:  "Mode",
		value:  func(c *config.Config) string { return modeName(c.Run.Fast) },
		toggle: func(c *config.Config) { c.Run.Fast = !c.Run.Fast },
	},
	{
		label: "Workers",
		value: func(c *config.Config) string {
			if c.Run.Workers == 0 {
				return "auto"
			}
			return fmt.Sprint(c.Run.Workers)
		},
		adjust: func(c *config.Config, d int) { c.Run.Workers = clamp(c.Run.Workers+d, 0, pipeline.MaxWorkers) },
	},
	{
		label: "Recent day range",
		value: func(c *config.Config) string {
			if c.Run.DayRange == 0 {
				return fmt.Sprintf("%d (default)", pipeline.DefaultDayRange)
			}
			return fmt.Sprint(c.Run.DayRange)
		},
		adjust: func(c *config.Config, d int) {
			if c.Run.DayRange == 0 {
				c.Run.DayRange = pipeline.DefaultDayRange
			}
			c.Run.DayRange = clamp(c.Run.DayRange+d, 1, pipeline.MaxDayRange)
		},
	},
	{
		label:  "Reviews",
		value:  func(c *config.Config) string { return onOff(c.Run.Reviews) },
		toggle: func(c *config.Config) { c.Run.Reviews = !c.Run.Reviews },
	},
	{
		label:  "Release+Size",
		value:  func(c *config.Config) string { return onOff(c.Run.ReleaseSize) },
		toggle: func(c *config.Config) { c.Run.ReleaseSize = !c.Run.ReleaseSize },
	},
	{
		label:  "Last update year",
		value:  func(c *config.Config) string { return onOff(c.Run.LastUpdate) },
		toggle: func(c *config.Config) { c.Run.LastUpdate = !c.Run.LastUpdate },
	},
	{
		label: "Output format",
		value: func(c *config.Config) string { return c.Output.Format },
		toggle: func(c *config.Config) {
			if c.Output.Format == config.FormatJSON {
				c.Output.Format = config.FormatCSV
			} else {
				c.Output.Format = config.FormatJSON
			}
		},
	},
	{
		label:  "Verbose",
		value:  func(c *config.Config) string { return onOff(c.Verbose) },
		toggle: func(c *config.Config) { c.Verbose = !c.Verbose },
	},
}

// SetupModel is the bubbletea model for the setup form.
type SetupModel struct {
	Config config.Config
	Cursor int
	Saved  bool
}

// NewSetupModel creates a form starting from cfg.
func NewSetupModel(cfg config.Config) SetupModel {
	return SetupModel{Config: cfg}
}

func (m SetupModel) Init() tea.Cmd {
	return nil
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	f := setupFields[m.Cursor]
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "s":
		m.Saved = true
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(setupFields)-1 {
			m.Cursor++
		}
	case " ", "enter":
		if f.toggle != nil {
			f.toggle(&m.Config)
		}
	case "left", "h", "-":
		m.step(f, -1)
	case "right", "l", "+":
		m.step(f, 1)
	}
	return m, nil
}

// step adjusts numeric fields and toggles the others.
func (m *SetupModel) step(f setupField, d int) {
	switch {
	case f.adjust != nil:
		f.adjust(&m.Config, d)
	case f.toggle != nil:
		f.toggle(&m.Config)
	}
}

func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("steamfam setup"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  ←/→ adjust  s save  q quit"))
	b.WriteString("\n\n")

	for i, f := range setupFields {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-18s %s", cursor, f.label, f.value(&m.Config))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  IDs file: %s", m.Config.IDsFile)))
	b.WriteString("\n")
	return b.String()
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
