package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withBuildInfo(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})
}

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Fatalf("expected a default version")
	}
}

func TestColored(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	for _, v := range []string{"0.1.0-dev", "1.2.3-rc.1+build.123", "1.0.0", "weird"} {
		withBuildInfo(t, v, "", "")
		if got := Colored(); got != v {
			t.Fatalf("expected %q without color, got %q", v, got)
		}
	}
}

func TestColoredHighlightsParts(t *testing.T) {
	withBuildInfo(t, "1.2.3-dev", "", "")
	versionMajorColor.EnableColor()
	t.Cleanup(versionMajorColor.DisableColor)
	got := Colored()
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Fatalf("expected colored major part and plain suffix, got %q", got)
	}
}
