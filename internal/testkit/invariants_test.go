package testkit

import (
	"strings"
	"testing"

	"enumgen/internal/abicache"
	"enumgen/internal/declfile"
	"enumgen/internal/diag"
	"enumgen/internal/source"
)

const shapes = `
[[enum]]
name = "Shape"
[[enum.case]]
name = "circle"
payload = "Float64"
[[enum.case]]
name = "empty"
`

func TestCheckDeclSpans(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("shape.toml", []byte(shapes))
	bag := diag.NewBag(10)
	u, ok := declfile.Load(fs, id, diag.BagReporter{Bag: bag})
	if !ok {
		t.Fatalf("load failed: %v", bag.Items())
	}
	if err := CheckDeclSpans(u); err != nil {
		t.Fatalf("expected valid spans, got %v", err)
	}

	u.Enums[0].Cases[1].Span = u.Enums[0].Cases[0].Span
	if err := CheckDeclSpans(u); err == nil || !strings.Contains(err.Error(), "does not follow") {
		t.Fatalf("expected an ordering error, got %v", err)
	}

	u.Enums[0].Span = source.Span{File: id, Start: 3, End: 3}
	if err := CheckDeclSpans(u); err == nil || !strings.Contains(err.Error(), "empty span") {
		t.Fatalf("expected an empty span error, got %v", err)
	}

	if err := CheckDeclSpans(nil); err == nil {
		t.Fatalf("expected an error for a nil unit")
	}
}

func TestCheckRecord(t *testing.T) {
	valid := abicache.Record{
		Name: "OptionalBool", Kind: "loadable", Size: 1, Align: 1, Stride: 1,
		Cases: []abicache.Case{{Name: "some", Payload: "Bool"}, {Name: "none", Pattern: "0x02"}},
	}
	tests := []struct {
		name   string
		mutate func(*abicache.Record)
		want   string
	}{
		{"valid", func(*abicache.Record) {}, ""},
		{"opaque skips sizes", func(r *abicache.Record) { r.Kind = "opaque"; r.Align, r.Stride = 0, 0 }, ""},
		{"alignment", func(r *abicache.Record) { r.Align = 3 }, "power of two"},
		{"stride", func(r *abicache.Record) { r.Align, r.Stride = 4, 6 }, "positive multiple"},
		{"size", func(r *abicache.Record) { r.Size = 2 }, "does not fit"},
		{"duplicate case", func(r *abicache.Record) { r.Cases[1].Name = "some" }, "duplicate case"},
		{"shared pattern", func(r *abicache.Record) {
			r.Cases = append(r.Cases, abicache.Case{Name: "other", Pattern: "0x02"})
		}, "share pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Cases = append([]abicache.Case(nil), valid.Cases...)
			tt.mutate(&r)
			err := CheckRecord(r)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
