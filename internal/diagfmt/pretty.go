// Package diagfmt renders diagnostics for terminals and tooling.
package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	underColor   = color.New(color.FgGreen)
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <sev>[<CODE>]: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes
// с аналогичным форматом. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	for _, d := range bag.Items() {
		writeDiagnostic(w, &d, fs, opts)
	}
}

func writeDiagnostic(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	fmt.Fprintf(w, "%s: %s[%s]: %s\n",
		location(fs, d.Primary, opts),
		severityLabel(d.Severity, opts.Color),
		d.Code.ID(),
		d.Message)
	writeContext(w, fs, d.Primary, opts)

	if len(d.Missing) > 0 {
		fmt.Fprintf(w, "  missing: %s\n", strings.Join(d.Missing, ", "))
	}
	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "%s: note: %s\n", location(fs, n.Span, opts), n.Msg)
			writeContext(w, fs, n.Span, opts)
		}
	}
}

func severityLabel(sev diag.Severity, colored bool) string {
	var label string
	var c *color.Color
	switch sev {
	case diag.SevError:
		label, c = "error", errorColor
	case diag.SevWarning:
		label, c = "warning", warningColor
	default:
		label, c = "info", infoColor
	}
	if !colored {
		return label
	}
	return c.Sprint(label)
}

func location(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	if fs == nil {
		return "<unknown>"
	}
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	path := f.Path
	if opts.PathMode == PathModeBasename {
		path = filepath.Base(path)
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

// writeContext prints the offending source line and a ^~~~ underline.
// Column math goes through runewidth so wide runes and tabs keep the
// caret aligned with what the terminal actually shows.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	if fs == nil || sp.Empty() {
		return
	}
	f := fs.Get(sp.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}

	fmt.Fprintf(w, "  %s\n", expandTabs(line))

	pad := displayWidth(line, start.Col-1)
	span := 1
	if end.Line == start.Line && end.Col > start.Col {
		span = displayWidth(line[min(int(start.Col-1), len(line)):], end.Col-start.Col)
	}
	underline := "^" + strings.Repeat("~", max(span-1, 0))
	if opts.Color {
		underline = underColor.Sprint(underline)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), underline)
}

const tabWidth = 4

// displayWidth measures the terminal width of the first n bytes of s.
func displayWidth(s string, n uint32) int {
	width := 0
	var consumed uint32
	for _, r := range s {
		if consumed >= n {
			break
		}
		if r == '\t' {
			width += tabWidth
		} else {
			width += runewidth.RuneWidth(r)
		}
		consumed += uint32(len(string(r)))
	}
	return width
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
