// Package console renders tsdev's terminal output: the startup summary
// table, restart status lines, and compile error banners.
//
// Styling is grounded on jakoblorz-go-changesets/internal/tui/styles.go's
// lipgloss.NewStyle() palette; the startup table is grounded on
// gooze-dev-gooze/internal/controller/simple.go's tablewriter usage.
package console

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	tsdeverrors "github.com/conneroisu/tsdev/internal/errors"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	restartStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Reporter writes tsdev's status output to an io.Writer, satisfying
// internal/reload.Reporter.
type Reporter struct {
	out io.Writer
}

// New constructs a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Restarting prints a single reload-batch summary line.
func (r *Reporter) Restarting(summary string) {
	fmt.Fprintln(r.out, restartStyle.Render(summary))
}

// Error prints a compile or IPC failure banner. Structured tsdev
// errors are rendered with their Kind and File; anything else falls
// back to a plain message.
func (r *Reporter) Error(err error) {
	var te *tsdeverrors.Error
	if e, ok := err.(*tsdeverrors.Error); ok {
		te = e
	}
	if te == nil {
		fmt.Fprintln(r.out, errorStyle.Render("error: "+err.Error()))
		return
	}

	header := errorStyle.Render(fmt.Sprintf("✗ %s", te.Kind))
	fmt.Fprintln(r.out, header)
	if te.File != "" {
		fmt.Fprintln(r.out, subtleStyle.Render("  file: "+te.File))
	}
	fmt.Fprintln(r.out, "  "+te.Message)
}

// Summary describes one line of the startup table.
type Summary struct {
	Component string
	Detail    string
}

// StartupTable renders the boot-time configuration summary tsdev
// prints before the first compile — session id, backend, extensions,
// socket path, and the user's command.
func StartupTable(rows []Summary) string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, titleStyle.Render("tsdev"))

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Component", "Detail"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, row := range rows {
		table.Append([]string{row.Component, row.Detail})
	}
	table.Render()

	return strings.TrimRight(buf.String(), "\n")
}
