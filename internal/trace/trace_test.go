package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeType, false},
		{LevelDetail, ScopeType, true},
		{LevelDetail, ScopeOp, false},
		{LevelDebug, ScopeOp, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s): expected %v, got %v", tt.level, tt.scope, tt.want, got)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel("detail"); err != nil || l != LevelDetail {
		t.Fatalf("expected detail, got %v (%v)", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("expected both, got %v (%v)", m, err)
	}
}

func TestStreamTracerWritesSpanWithExtras(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	span := Begin(tr, ScopeType, "enum:Shape", 0)
	span.WithExtra("strategy", "multi-payload").WithExtra("extra_tag_bits", "0")
	span.End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ enum:Shape") {
		t.Fatalf("expected begin line, got %q", out)
	}
	if !strings.Contains(out, "← enum:Shape (ok) {extra_tag_bits=0, strategy=multi-payload}") {
		t.Fatalf("expected sorted extras on end line, got %q", out)
	}
}

func TestStreamTracerFiltersByScope(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Begin(tr, ScopeType, "enum:Hidden", 0).End("")
	Point(tr, ScopePass, "verify", "", 0, map[string]string{"enums": "3"})

	out := buf.String()
	if strings.Contains(out, "Hidden") {
		t.Fatalf("type scope must be filtered at phase level: %q", out)
	}
	if !strings.Contains(out, `"kind":"point"`) || !strings.Contains(out, `"enums":"3"`) {
		t.Fatalf("expected point event in ndjson, got %q", out)
	}
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	tr := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopeOp, name, "", 0, nil)
	}
	events := tr.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("expected [b c], got %+v", events)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop tracer without attachment")
	}
	tr := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), tr)
	if FromContext(ctx) != Tracer(tr) {
		t.Fatalf("expected attached tracer")
	}
	if Begin(Nop, ScopeDriver, "x", 0).ID() != 0 {
		t.Fatalf("disabled tracer must yield an empty span")
	}
}

func TestHeartbeatEmitsUntilStopped(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("expected no heartbeat for a disabled tracer")
	}
	tr := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(tr, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(tr.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	events := tr.Snapshot()
	if len(events) == 0 || events[0].Kind != KindHeartbeat {
		t.Fatalf("expected heartbeat events, got %+v", events)
	}
	n := len(events)
	time.Sleep(5 * time.Millisecond)
	if len(tr.Snapshot()) != n {
		t.Fatalf("expected no events after Stop")
	}
}

func TestNewPicksImplementation(t *testing.T) {
	if tr, err := New(Config{Level: LevelOff, Mode: ModeStream}); err != nil || tr != Nop {
		t.Fatalf("expected Nop for level off, got %T (%v)", tr, err)
	}

	ring, err := New(Config{Level: LevelDetail, Mode: ModeRing, RingSize: 2})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	if _, ok := Ring(ring); !ok {
		t.Fatalf("expected a ring tracer, got %T", ring)
	}

	var buf bytes.Buffer
	both, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, Format: FormatNDJSON})
	if err != nil {
		t.Fatalf("both: %v", err)
	}
	Begin(both, ScopeDriver, "layout", 0).End("")
	r, ok := Ring(both)
	if !ok {
		t.Fatalf("expected the fan-out to keep a ring")
	}
	if len(r.Snapshot()) != 2 || !strings.Contains(buf.String(), `"name":"layout"`) {
		t.Fatalf("expected events in both ring and stream, got %d and %q", len(r.Snapshot()), buf.String())
	}
	if err := both.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := New(Config{Level: LevelPhase, Mode: StorageMode(9)}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRingTracerDump(t *testing.T) {
	tr := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(tr, ScopeOp, name, "", 0, nil)
	}
	var buf bytes.Buffer
	if err := tr.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "• b") || !strings.Contains(out, "• c") || !strings.Contains(out, "• e") {
		t.Fatalf("expected the last three events, got %q", out)
	}
}
