package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/steamfam/pkg/catalog"
	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(20)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Run Report
// =============================================================================

// writeReport prints the post-run summary: accounts, type breakdown,
// timings, column coverage and hints.
func writeReport(w io.Writer, res *pipeline.Result) {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Accounts"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  aggregated %s\n", StyleNumber.Render(fmt.Sprintf("%d/%d", res.OKAccounts, res.TotalAccounts)))
	for _, f := range res.FailedAccounts {
		fmt.Fprintf(&b, "  %s %s\n", styleIconError.Render(iconError), f.String())
	}

	b.WriteString("\n")
	b.WriteString(StyleTitle.Render("Items"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  types    %s\n", formatTypeCounts(res))
	fmt.Fprintf(&b, "  exported %s  %s\n",
		StyleNumber.Render(fmt.Sprint(len(res.Rows))),
		StyleDim.Render(fmt.Sprintf("(excluded %d delisted)", res.ExcludedDelisted)))

	b.WriteString("\n")
	b.WriteString(StyleTitle.Render("Timing"))
	b.WriteString("\n")
	b.WriteString(timingTable(res).Render())
	b.WriteString("\n\n")

	b.WriteString(StyleTitle.Render("Coverage"))
	b.WriteString("\n")
	b.WriteString(coverageTable(res.Coverage).Render())
	b.WriteString("\n")

	for _, h := range res.Coverage.Hints(res.Features) {
		fmt.Fprintf(&b, "%s only %.1f%% had %s, consider turning it off next run\n",
			styleIconWarning.Render(iconWarning), h.Percent, h.Column)
	}

	fmt.Fprint(w, b.String())
}

func formatTypeCounts(res *pipeline.Result) string {
	if len(res.TypeCounts) == 0 {
		return StyleDim.Render("none")
	}
	kinds := make([]string, 0, len(res.TypeCounts))
	for k := range res.TypeCounts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s %d", k, res.TypeCounts[catalog.Kind(k)])
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

func timingTable(res *pipeline.Result) *table.Table {
	s := res.Stats
	perItem := func(enabled bool, d time.Duration) []string {
		if !enabled {
			return []string{"skipped", ""}
		}
		return []string{seconds(d), fmt.Sprintf("~%.3fs/item", s.PerItem(d).Seconds())}
	}

	rows := [][]string{
		{"Resolve accounts", seconds(s.Resolve), ""},
		{"Fetch libraries", seconds(s.FetchLibraries), ""},
		{"Metadata", seconds(s.Metadata), ""},
		{"Enrichment", seconds(s.Enrichment), ""},
		append([]string{"  Reviews"}, perItem(res.Features.Reviews, s.Reviews)...),
		append([]string{"  Last update"}, perItem(res.Features.LastUpdate, s.LastUpdate)...),
		{"Total", seconds(s.Total), ""},
	}
	return newTable("Stage", "Time", "").Rows(rows...)
}

func coverageTable(c pipeline.Coverage) *table.Table {
	rows := make([][]string, 0, len(pipeline.Columns))
	for _, col := range pipeline.Columns {
		rows = append(rows, []string{
			col,
			fmt.Sprintf("%d/%d", c.Counts[col], c.Total),
			fmt.Sprintf("%.1f%%", c.Percent[col]),
		})
	}
	return newTable("Column", "Filled", "").Rows(rows...)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGray).PaddingRight(1)
			}
			return lipgloss.NewStyle().Foreground(colorWhite).PaddingRight(1)
		})
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
