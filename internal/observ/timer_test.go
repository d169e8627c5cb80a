package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	if r := timer.Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("expected empty report, got %+v", r)
	}

	decl := timer.Begin("decl")
	time.Sleep(time.Millisecond)
	timer.End(decl, "")
	cache := timer.Begin("cache")
	timer.End(cache, "miss")
	timer.End(42, "ignored")

	r := timer.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Name != "decl" || r.Phases[1].Note != "miss" {
		t.Fatalf("unexpected phases %+v", r.Phases)
	}
	if r.Phases[0].DurationMS <= 0 {
		t.Fatalf("expected positive duration, got %v", r.Phases[0].DurationMS)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("expected total >= first phase, got %v < %v", r.TotalMS, r.Phases[0].DurationMS)
	}
}

func TestReportSummary(t *testing.T) {
	r := Report{TotalMS: 3, Phases: []PhaseReport{{Name: "decl", DurationMS: 1}, {Name: "cache", DurationMS: 2, Note: "hit"}}}
	out := r.Summary()
	for _, want := range []string{"timings:\n", "  decl                    1.00 ms\n", "  // hit\n", "  total                   3.00 ms\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
}
