package diagfmt

import (
	"path/filepath"
	"strings"
)

// PathMode selects how file paths appear in rendered diagnostics.
type PathMode uint8

const (
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative // relative to BaseDir
	PathModeBasename
)

// longPath is the length above which PathModeAuto shows only the basename
// of an absolute path.
const longPath = 48

// PrettyOpts configure Pretty.
type PrettyOpts struct {
	Color bool
	// Context is the number of source lines shown above the primary line.
	Context   int8
	PathMode  PathMode
	BaseDir   string
	ShowNotes bool
}

// JSONOpts configure JSON and BuildDiagnosticsOutput.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	BaseDir          string
	// Max limits how many diagnostics are written; the bag is untouched.
	Max          int
	IncludeNotes bool
}

func formatPath(path string, mode PathMode, baseDir string) string {
	switch mode {
	case PathModeAbsolute:
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		return filepath.ToSlash(abs)
	case PathModeRelative:
		rel, err := filepath.Rel(baseDir, path)
		if baseDir == "" || err != nil || strings.HasPrefix(rel, "..") {
			return path
		}
		return filepath.ToSlash(rel)
	case PathModeBasename:
		return filepath.Base(path)
	}
	if len(path) > longPath && filepath.IsAbs(path) {
		return filepath.Base(path)
	}
	return path
}
