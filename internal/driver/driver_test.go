package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"enumgen/internal/abicache"
	"enumgen/internal/bitvec"
	"enumgen/internal/diag"
	"enumgen/internal/enumimpl"
	"enumgen/internal/ir/interp"
	"enumgen/internal/irgen"
	"enumgen/internal/layout"
	"enumgen/internal/observ"
	"enumgen/internal/source"
	"enumgen/internal/testkit"
	"enumgen/internal/trace"
	"enumgen/internal/types"
)

const either = `
[[enum]]
name = "Either"
[[enum.case]]
name = "left"
payload = "Int64"
[[enum.case]]
name = "right"
payload = "Int64"
[[enum.case]]
name = "neither"

[[enum]]
name = "Color"
[[enum.case]]
name = "red"
[[enum.case]]
name = "green"
`

const recursive = `
[[struct]]
name = "Node"
[[struct.field]]
name = "value"
type = "Int64"
[[struct.field]]
name = "next"
type = "List"

[[enum]]
name = "List"
[[enum.case]]
name = "empty"
[[enum.case]]
name = "cons"
payload = "Node"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func findCode(bag *diag.Bag, code diag.Code) (diag.Diagnostic, bool) {
	for _, d := range bag.Items() {
		if d.Code == code {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}

func TestLayoutFiles(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "either.toml", either)
	bad := writeFile(t, dir, "list.toml", recursive)
	missing := filepath.Join(dir, "missing.toml")

	fs, results, err := LayoutFiles(context.Background(), []string{ok, bad, missing}, Options{Verify: true, Jobs: 2})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	good := results[0]
	if good.Bag.HasErrors() || len(good.Records) != 2 {
		t.Fatalf("expected 2 records without errors, got %d records, %v", len(good.Records), good.Bag.Items())
	}
	if r := good.Records[0]; r.Name != "Either" || r.Strategy != "multi-payload" || r.Size != 9 {
		t.Fatalf("unexpected Either record %+v", r)
	}
	if err := testkit.CheckDeclSpans(good.Unit); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
	for _, r := range good.Records {
		if err := testkit.CheckRecord(r); err != nil {
			t.Fatalf("record invariants: %v", err)
		}
	}

	d, found := findCode(results[1].Bag, diag.LayoutRecursiveEnum)
	if !found {
		t.Fatalf("expected a recursive enum diagnostic, got %v", results[1].Bag.Items())
	}
	file := fs.Get(results[1].FileID)
	if got := string(file.Content[d.Primary.Start:d.Primary.End]); got != `name = "List"` {
		t.Fatalf("expected the List declaration to be highlighted, got %q", got)
	}
	if len(d.Notes) != 1 || string(file.Content[d.Notes[0].Span.Start:d.Notes[0].Span.End]) != `name = "cons"` {
		t.Fatalf("expected a note on case cons, got %+v", d.Notes)
	}
	if len(results[1].Records) != 0 {
		t.Fatalf("expected no record for the recursive enum")
	}

	if _, found := findCode(results[2].Bag, diag.IOLoadFileError); !found {
		t.Fatalf("expected a load error, got %v", results[2].Bag.Items())
	}
}

func TestLayoutFilesUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "either.toml", either)
	cache, err := abicache.Open(filepath.Join(dir, "cache"), "enumgen")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{Cache: cache, Timings: true}

	_, first, err := LayoutFiles(context.Background(), []string{path}, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first[0].Cached || first[0].Context == nil {
		t.Fatalf("expected the first run to convert")
	}
	_, second, err := LayoutFiles(context.Background(), []string{path}, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second[0].Cached || second[0].Context != nil {
		t.Fatalf("expected the second run to come from the cache")
	}
	if len(second[0].Records) != len(first[0].Records) || second[0].Records[0].Cases[2].Pattern != first[0].Records[0].Cases[2].Pattern {
		t.Fatalf("expected cached records to match, got %+v", second[0].Records)
	}
	if _, found := findCode(second[0].Bag, diag.ObsTimings); !found || second[0].Timing == nil {
		t.Fatalf("expected a timing diagnostic")
	}
}

func TestLayoutFilesIsTraced(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "either.toml", either)
	ring := trace.NewRingTracer(128, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, _, err := LayoutFiles(ctx, []string{path}, Options{}); err != nil {
		t.Fatalf("layout: %v", err)
	}
	names := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd {
			names[ev.Name] = true
		}
	}
	for _, want := range []string{"layout", "file", "enum:Either", "enum:Color"} {
		if !names[want] {
			t.Fatalf("expected span %s, got %v", want, names)
		}
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want diag.Code
	}{
		{&enumimpl.UnsupportedError{Kind: enumimpl.UnsupportedRecursivePayload}, diag.LayoutRecursiveEnum},
		{&enumimpl.UnsupportedError{Kind: enumimpl.UnsupportedNonFixedMultiPayload}, diag.LayoutNonFixedMultiPayload},
		{&enumimpl.UnsupportedError{Kind: enumimpl.UnsupportedBadRawValue}, diag.LayoutBadRawValue},
		{&enumimpl.UnsupportedError{Kind: enumimpl.UnsupportedInvalidCase}, diag.LayoutInvalidCase},
		{&irgen.InvariantError{Check: irgen.CheckTagCollision}, diag.LayoutTagCollision},
		{&irgen.InvariantError{Check: irgen.CheckCapacity}, diag.LayoutInvariant},
		{&layout.LayoutError{Kind: layout.LayoutErrRecursiveUnsized}, diag.LayoutUnsized},
		{errors.New("other"), diag.LayoutInvariant},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err); got != tt.want {
			t.Fatalf("%v: expected %s, got %s", tt.err, tt.want.ID(), got.ID())
		}
	}
}

func convert(t *testing.T, build func(in *types.Interner) types.TypeID) enumimpl.Strategy {
	t.Helper()
	in := types.NewInterner()
	c := irgen.NewContext(layout.X86_64LinuxGNU(), in, irgen.Options{VerifyLayouts: true})
	s, err := c.ConvertEnumType(build(in))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return s
}

func eitherEnum(in *types.Interner) types.TypeID {
	b := in.Builtins()
	id := in.RegisterEnum("Either")
	in.SetEnumCases(id, []types.EnumCase{
		{Name: "left", Payload: b.Int64}, {Name: "right", Payload: b.Int64}, {Name: "neither"},
	})
	return id
}

func TestEmitEveryOp(t *testing.T) {
	s := convert(t, eitherEnum)
	for _, op := range Ops {
		f, err := Emit(s, EmitRequest{Op: op})
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if f.String() == "" {
			t.Fatalf("%s: expected printed IR", op)
		}
	}
}

func TestEmitRejectsInvalidRequests(t *testing.T) {
	s := convert(t, eitherEnum)
	if _, err := Emit(s, EmitRequest{Op: OpProject, Case: "neither"}); err == nil {
		t.Fatalf("expected project of an empty case to fail")
	}
	if _, err := Emit(s, EmitRequest{Op: OpInject, Case: "nope"}); err == nil {
		t.Fatalf("expected an unknown case to fail")
	}
	if _, err := ParseOp("move"); err == nil {
		t.Fatalf("expected an unknown op to fail")
	}
	if op, err := ParseOp("PACK"); err != nil || op != OpPack {
		t.Fatalf("expected PACK to parse, got %q %v", op, err)
	}

	opaque := convert(t, func(in *types.Interner) types.TypeID {
		id := in.RegisterEnum("Maybe")
		in.SetEnumCases(id, []types.EnumCase{{Name: "none"}, {Name: "some", Payload: in.GenericParam("T")}})
		return id
	})
	if _, err := Emit(opaque, EmitRequest{Op: OpPack}); err == nil {
		t.Fatalf("expected pack of an opaque enum to fail")
	}
}

func TestEmittedInjectThenSwitch(t *testing.T) {
	s := convert(t, eitherEnum)
	size := s.Facts().Size
	for _, el := range s.Cases() {
		inject, err := Emit(s, EmitRequest{Op: OpInject, Case: el.Name})
		if err != nil {
			t.Fatalf("inject %s: %v", el.Name, err)
		}
		sw, err := Emit(s, EmitRequest{Op: OpSwitch})
		if err != nil {
			t.Fatalf("switch: %v", err)
		}

		m := interp.New()
		addr := m.Alloc(size, 8)
		args := []bitvec.Bits{bitvec.FromUint64(64, addr)}
		if el.Payload != nil {
			src := m.Alloc(8, 8)
			if err := m.Write(src, []byte{7, 0, 0, 0, 0, 0, 0, 0}); err != nil {
				t.Fatalf("write payload: %v", err)
			}
			args = append(args, bitvec.FromUint64(64, src))
		}
		if _, err := m.Run(inject, args...); err != nil {
			t.Fatalf("run inject %s: %v", el.Name, err)
		}
		res, err := m.Run(sw, bitvec.FromUint64(64, addr))
		if err != nil {
			t.Fatalf("run switch: %v", err)
		}
		if got := res.Values[0].Lo64(); got != uint64(el.Index) { //nolint:gosec // G115: small index.
			t.Fatalf("expected case %s (%d), got %d", el.Name, el.Index, got)
		}
	}
}

func TestEmitZeroSizedPayloadCase(t *testing.T) {
	s := convert(t, func(in *types.Interner) types.TypeID {
		b := in.Builtins()
		id := in.RegisterEnum("Slot")
		in.SetEnumCases(id, []types.EnumCase{
			{Name: "a", Payload: b.Int64}, {Name: "b", Payload: b.Int64}, {Name: "c", Payload: b.Unit},
		})
		return id
	})
	inject, err := Emit(s, EmitRequest{Op: OpInject, Case: "c"})
	if err != nil {
		t.Fatalf("inject c: %v", err)
	}
	if len(inject.Params) != 1 {
		t.Fatalf("expected inject of a unit payload to take only the address, got %d params", len(inject.Params))
	}
	if _, err := Emit(s, EmitRequest{Op: OpProject, Case: "c"}); err != nil {
		t.Fatalf("project c: %v", err)
	}
	sw, err := Emit(s, EmitRequest{Op: OpSwitch})
	if err != nil {
		t.Fatalf("switch: %v", err)
	}

	m := interp.New()
	addr := m.Alloc(s.Facts().Size, 8)
	if _, err := m.Run(inject, bitvec.FromUint64(64, addr)); err != nil {
		t.Fatalf("run inject: %v", err)
	}
	res, err := m.Run(sw, bitvec.FromUint64(64, addr))
	if err != nil {
		t.Fatalf("run switch: %v", err)
	}
	if got := res.Values[0].Lo64(); got != 2 {
		t.Fatalf("expected case c (2), got %d", got)
	}
}

func TestTimingDiagnosticSurvivesFullBag(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.DeclParse, source.Span{}, "first"))
	report := observ.Report{TotalMS: 1.5, Phases: []observ.PhaseReport{{Name: "decl", DurationMS: 1.5}}}
	addAlways(bag, timingDiagnostic(0, "a.toml", report))

	d, found := findCode(bag, diag.ObsTimings)
	if !found {
		t.Fatalf("expected the timing diagnostic to be kept, got %v", bag.Items())
	}
	if d.Message != "timings: total 1.50 ms: a.toml" {
		t.Fatalf("unexpected message %q", d.Message)
	}
	if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, `"path":"a.toml"`) || !strings.Contains(d.Notes[0].Msg, `"name":"decl"`) {
		t.Fatalf("expected a JSON note, got %+v", d.Notes)
	}
}
