package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"enumgen/internal/source"
)

// goldenLine is one rendered entry: "<sev> <code> <path>:<line>:<col> <msg>".
type goldenLine struct {
	sev, code, path string
	line, col       uint32
	msg             string
}

func (g goldenLine) String() string {
	return fmt.Sprintf("%s %s %s:%d:%d %s", g.sev, g.code, g.path, g.line, g.col, g.msg)
}

func compareGolden(x, y goldenLine) int {
	return cmp.Or(
		strings.Compare(x.path, y.path),
		cmp.Compare(x.line, y.line),
		cmp.Compare(x.col, y.col),
		strings.Compare(x.sev, y.sev),
		strings.Compare(x.code, y.code),
		strings.Compare(x.msg, y.msg),
	)
}

// FormatGoldenDiagnostics renders diags one per line in a stable order for
// golden files. Paths under baseDir are made relative; notes become "note"
// lines carrying the code of their diagnostic. The result has no trailing
// newline and is empty when nothing resolves.
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, baseDir string, includeNotes bool) string {
	if fs == nil {
		return ""
	}

	var lines []goldenLine
	emit := func(sev string, code Code, sp source.Span, msg string) {
		f := fs.Get(sp.File)
		if f == nil {
			return
		}
		start, _ := fs.Resolve(sp)
		lines = append(lines, goldenLine{
			sev:  sev,
			code: code.ID(),
			path: relativePath(f.Path, baseDir),
			line: start.Line,
			col:  start.Col,
			msg:  flatten(msg),
		})
	}
	for _, d := range diags {
		emit(SeverityLabel(d.Severity), d.Code, d.Primary, d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			emit("note", d.Code, n.Span, n.Msg)
		}
	}

	slices.SortStableFunc(lines, compareGolden)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return strings.Join(out, "\n")
}

func relativePath(path, baseDir string) string {
	if baseDir != "" && filepath.IsAbs(path) {
		if rel, err := filepath.Rel(baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	path = filepath.ToSlash(path)
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	return path
}

// SeverityLabel is the lowercase label used in line-oriented output.
func SeverityLabel(sev Severity) string {
	switch {
	case sev >= SevError:
		return "error"
	case sev == SevWarning:
		return "warning"
	default:
		return "info"
	}
}

// flatten folds a multi-line message onto one line.
func flatten(msg string) string {
	return strings.TrimSpace(strings.Join(strings.FieldsFunc(msg, func(r rune) bool { return r == '\n' || r == '\r' }), " "))
}
