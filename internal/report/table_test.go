package report

import (
	"bytes"
	"strings"
	"testing"

	"enumgen/internal/abicache"
)

func sampleRecords() []abicache.Record {
	return []abicache.Record{
		{
			Name: "OptionalBool", Strategy: "single-payload", Kind: "fixed",
			Size: 1, Align: 1, Stride: 1, PayloadBits: 8, ExtraInhabitants: 253,
			Cases: []abicache.Case{{Name: "some", Payload: "Bool"}, {Name: "none", Pattern: "0x02"}},
		},
		{
			Name: "Either", Strategy: "multi-payload", Kind: "fixed",
			Size: 9, Align: 8, Stride: 16, PayloadBits: 64, ExtraTagBits: 1, ExtraInhabitants: 254,
			Cases: []abicache.Case{{Name: "left", Payload: "Int64"}, {Name: "right", Payload: "Int32"}},
		},
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "either.toml", sampleRecords(), Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "either.toml" {
		t.Fatalf("expected title line, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "ENUM          STRATEGY") {
		t.Fatalf("unexpected header %q", lines[1])
	}
	fields := strings.Fields(lines[3])
	want := []string{"Either", "multi-payload", "fixed", "9", "8", "16", "64", "1", "-", "254"}
	if strings.Join(fields, " ") != strings.Join(want, " ") {
		t.Fatalf("expected row %v, got %v", want, fields)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected no escape codes without color")
	}
}

func TestRenderPatterns(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "opt.toml", sampleRecords()[:1], Options{Patterns: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"    some(Bool)\n", "    none = 0x02\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, "empty.toml", nil, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "  (no enums)\n") {
		t.Fatalf("expected empty marker, got %q", buf.String())
	}
}

func TestRenderTruncatesEnumColumn(t *testing.T) {
	records := []abicache.Record{{Name: "AVeryLongEnumerationName", Strategy: "no-payload", Kind: "fixed", Size: 1, Align: 1, Stride: 1}}
	var wide bytes.Buffer
	if err := Render(&wide, "t.toml", records, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var narrow bytes.Buffer
	if err := Render(&narrow, "t.toml", records, Options{Width: 80}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(wide.String(), "AVeryLongEnumerationName") {
		t.Fatalf("expected full name without width limit")
	}
	if strings.Contains(narrow.String(), "AVeryLongEnumerationName") || !strings.Contains(narrow.String(), "...") {
		t.Fatalf("expected truncated name, got:\n%s", narrow.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 6, "abc..."},
		{"abcdefgh", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d): expected %q, got %q", tt.in, tt.width, tt.want, got)
		}
	}
}
