// Package observ measures how long the phases of a layout run take.
package observ

import (
	"fmt"
	"strings"
	"time"
)

type phase struct {
	name    string
	started time.Time
	took    time.Duration
	note    string
}

// Timer collects the phases of one file in the order they begin. It is not
// safe for concurrent use.
type Timer struct {
	phases []phase
}

func NewTimer() *Timer { return &Timer{phases: make([]phase, 0, 4)} }

// Begin starts a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, phase{name: name, started: time.Now()})
	return len(t.phases) - 1
}

// End stops the phase idx and attaches note to it. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.took, p.note = time.Since(p.started), note
}

// PhaseReport is one finished phase in milliseconds.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serializable result of a Timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func ms(d time.Duration) float64 { return d.Seconds() * 1000 }

// Report summarizes the phases; the total is the sum of the phase durations.
func (t *Timer) Report() Report {
	var r Report
	var sum time.Duration
	for _, p := range t.phases {
		sum += p.took
		r.Phases = append(r.Phases, PhaseReport{Name: p.name, DurationMS: ms(p.took), Note: p.note})
	}
	r.TotalMS = ms(sum)
	return r
}

// Summary renders r as an aligned block headed "timings:".
func (r Report) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	line := func(name string, v float64, note string) {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", name, v)
		if note != "" {
			b.WriteString("  // " + note)
		}
		b.WriteByte('\n')
	}
	for _, p := range r.Phases {
		line(p.Name, p.DurationMS, p.Note)
	}
	line("total", r.TotalMS, "")
	return b.String()
}
