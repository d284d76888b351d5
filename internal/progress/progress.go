// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress prints operator-facing status lines for long runs.
// Each line starts with a prefix that says what happened to one resource:
//
//	wrote Some_Title_ABCD2345.md
//	saved attachments/ATT1/paper.pdf
//	skipped: ABCD2345 (no annotated attachments)
//	failed: ATT1 (HTTP 404 from .../file)
//
// Prefixes are colored with lipgloss when the writer is a terminal and plain
// otherwise, so piped output stays grep-friendly.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Prefixes written before each status line.
const (
	PrefixWrote   = "wrote"
	PrefixSaved   = "saved"
	PrefixSkipped = "skipped:"
	PrefixFailed  = "failed:"
)

// Styles holds the lipgloss styles applied to prefixes.
type Styles struct {
	Success lipgloss.Style
	Skip    lipgloss.Style
	Fail    lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
}

// Printer writes status lines. A nil *Printer discards everything.
type Printer struct {
	w      io.Writer
	isTTY  bool
	styles Styles
}

// NewPrinter returns a printer writing to w. Colors are enabled only when
// isTTY is true.
func NewPrinter(w io.Writer, isTTY bool) *Printer {
	styles := Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")), // Green
		Skip:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")), // Yellow
		Fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	if !isTTY {
		styles = Styles{
			Success: lipgloss.NewStyle(),
			Skip:    lipgloss.NewStyle(),
			Fail:    lipgloss.NewStyle(),
			Bold:    lipgloss.NewStyle(),
			Dim:     lipgloss.NewStyle(),
		}
	}
	return &Printer{w: w, isTTY: isTTY, styles: styles}
}

// Discard returns a printer that writes nowhere.
func Discard() *Printer {
	return NewPrinter(io.Discard, false)
}

// IsTTY checks if a writer is a terminal.
// Returns true only for os.File that is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// IsTTY reports whether colors are enabled.
func (p *Printer) IsTTY() bool {
	return p != nil && p.isTTY
}

// Wrote reports a file written by the exporter.
func (p *Printer) Wrote(format string, args ...any) {
	p.line(successStyle, PrefixWrote, format, args...)
}

// Saved reports a downloaded attachment.
func (p *Printer) Saved(format string, args ...any) {
	p.line(successStyle, PrefixSaved, format, args...)
}

// Skipped reports a resource that was intentionally not processed.
func (p *Printer) Skipped(format string, args ...any) {
	p.line(skipStyle, PrefixSkipped, format, args...)
}

// Failed reports a per-resource failure that did not stop the run.
func (p *Printer) Failed(format string, args ...any) {
	p.line(failStyle, PrefixFailed, format, args...)
}

// Info writes an unprefixed line.
func (p *Printer) Info(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Summary writes a bold heading followed by a dim detail, e.g. the batch
// totals at the end of a run.
func (p *Printer) Summary(heading, format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "\n%s %s\n", p.styles.Bold.Render(heading), p.styles.Dim.Render(fmt.Sprintf(format, args...)))
}

func successStyle(s Styles) lipgloss.Style { return s.Success }
func skipStyle(s Styles) lipgloss.Style    { return s.Skip }
func failStyle(s Styles) lipgloss.Style    { return s.Fail }

func (p *Printer) line(style func(Styles) lipgloss.Style, prefix, format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", style(p.styles).Render(prefix), fmt.Sprintf(format, args...))
}
