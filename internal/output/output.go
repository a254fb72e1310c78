// Package output provides consistent CLI status output. Colour is used only
// when writing to a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	colorAccent = "154"
	colorGray   = "245"
	colorRed    = "196"
	colorYellow = "220"
)

// styles holds the lipgloss styles of a Writer.
type styles struct {
	header  lipgloss.Style
	accent  lipgloss.Style
	dim     lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
}

func colorStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true),
		accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
	}
}

func plainStyles() styles {
	return styles{
		header:  lipgloss.NewStyle(),
		accent:  lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
		warning: lipgloss.NewStyle(),
		error:   lipgloss.NewStyle(),
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
	st       styles
}

// New creates a Writer, enabling colour when out is a terminal.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !NoColor())
}

// NewWithColor creates a Writer with colour explicitly on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	st := plainStyles()
	if useColor {
		st = colorStyles()
	}
	return &Writer{out: out, useColor: useColor, st: st}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColor reports whether the NO_COLOR environment variable is set.
func NoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.st.warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.st.error.Render(msg))
}

// Code prints a block indented by two spaces.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// TemplateRow is one line of a template listing.
type TemplateRow struct {
	Position  int
	Name      string
	Location  string
	TargetDir string
	Default   bool
}

// Templates prints a numbered template listing. The default template is
// marked with an asterisk.
func (w *Writer) Templates(rows []TemplateRow) {
	nameWidth := len("NAME")
	for _, r := range rows {
		if len(r.Name) > nameWidth {
			nameWidth = len(r.Name)
		}
	}

	header := fmt.Sprintf("  %3s  %-*s  %s", "#", nameWidth, "NAME", "LOCATION")
	_, _ = fmt.Fprintln(w.out, w.st.header.Render(header))

	for _, r := range rows {
		marker := " "
		name := fmt.Sprintf("%-*s", nameWidth, r.Name)
		if r.Default {
			marker = "*"
			name = w.st.accent.Render(name)
		}
		loc := r.Location
		if r.TargetDir != "" && r.TargetDir != "." {
			loc += w.st.dim.Render(" → " + r.TargetDir)
		}
		_, _ = fmt.Fprintf(w.out, "%s %3d  %s  %s\n", marker, r.Position, name, loc)
	}
}
