package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"enumgen/internal/diag"
	"enumgen/internal/source"
)

type palette struct {
	err, warn, info, note, loc, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan),
		note:  color.New(color.FgBlue),
		loc:   color.New(color.Bold),
		caret: color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.loc, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty formats diagnostics for humans, in bag order (call bag.Sort first).
// Each diagnostic prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by the source line underlined with ^~~~ and the notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		loc := location(fs, d.Primary, opts.PathMode, opts.BaseDir)
		fmt.Fprintf(w, "%s %s %s: %s\n",
			p.loc.Sprint(loc+":"),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		writeSnippet(w, fs, d.Primary, int(opts.Context), p)

		showNotes := opts.ShowNotes && d.Code != diag.ObsTimings
		if !showNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
		}
	}
	if bag.Dropped() > 0 {
		fmt.Fprintf(w, "%d more diagnostics were dropped\n", bag.Dropped())
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, baseDir string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	path := formatPath(f.Path, mode, baseDir)
	if len(f.Content) == 0 {
		return path
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func writeSnippet(w io.Writer, fs *source.FileSet, sp source.Span, context int, p palette) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, end := fs.Resolve(sp)
	first := int(start.Line) - context
	if first < 1 {
		first = 1
	}
	gutter := len(fmt.Sprint(start.Line))
	for n := first; n <= int(start.Line); n++ {
		fmt.Fprintf(w, "  %*d | %s\n", gutter, n, f.GetLine(uint32(n))) //nolint:gosec // G115: line numbers are positive
	}

	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	} else if end.Line != start.Line {
		width = len(f.GetLine(start.Line)) - int(start.Col) + 1
	}
	if width < 1 {
		width = 1
	}
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "  %*s | %s%s\n", gutter, "", strings.Repeat(" ", int(start.Col)-1), p.caret.Sprint(marker))
}
