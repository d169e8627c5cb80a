package irgen

import (
	"errors"
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"enumgen/internal/bitvec"
	"enumgen/internal/enumimpl"
	"enumgen/internal/layout"
	"enumgen/internal/trace"
	"enumgen/internal/types"
)

type layoutFixture struct {
	Name  string `yaml:"name"`
	Cases []struct {
		Name    string `yaml:"name"`
		Payload string `yaml:"payload"`
	} `yaml:"cases"`
	Expect struct {
		Strategy         string            `yaml:"strategy"`
		Size             int               `yaml:"size"`
		Align            int               `yaml:"align"`
		Stride           int               `yaml:"stride"`
		PayloadBits      int               `yaml:"payload_bits"`
		ExtraTagBits     int               `yaml:"extra_tag_bits"`
		ExtraInhabitants uint32            `yaml:"extra_inhabitants"`
		PayloadTagBits   string            `yaml:"payload_tag_bits"`
		SpareBits        string            `yaml:"spare_bits"`
		Patterns         map[string]string `yaml:"patterns"`
	} `yaml:"expect"`
}

type layoutFixtureFile struct {
	Layouts []layoutFixture `yaml:"layouts"`
}

func builtinByName(in *types.Interner, name string) (types.TypeID, bool) {
	b := in.Builtins()
	ids := map[string]types.TypeID{
		"Bool":       b.Bool,
		"Int8":       b.Int8,
		"Int32":      b.Int32,
		"Int64":      b.Int64,
		"UInt8":      b.Uint8,
		"RawPointer": b.RawPointer,
		"Ref":        b.Ref,
		"UnknownRef": b.UnknownRef,
		"String":     b.String,
		"Unit":       b.Unit,
	}
	id, ok := ids[name]
	return id, ok
}

func newTestContext(opts Options) *Context {
	opts.VerifyLayouts = true
	return NewContext(layout.X86_64LinuxGNU(), types.NewInterner(), opts)
}

func mustConvert(t *testing.T, c *Context, id types.TypeID) enumimpl.Strategy {
	t.Helper()
	s, err := c.ConvertEnumType(id)
	if err != nil {
		t.Fatalf("convert %s: %v", c.Types.Name(id), err)
	}
	return s
}

func expectHex(t *testing.T, what string, got bitvec.Bits, want string) {
	t.Helper()
	w, err := bitvec.ParseHex(got.Width(), want)
	if err != nil {
		t.Fatalf("%s: bad fixture literal %q: %v", what, want, err)
	}
	if !got.Equal(w) {
		t.Fatalf("%s: expected %s, got %s", what, w.Hex(), got.Hex())
	}
}

func TestGoldenLayouts(t *testing.T) {
	data, err := os.ReadFile("testdata/layouts.yaml")
	if err != nil {
		t.Fatalf("read fixtures: %v", err)
	}
	var file layoutFixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to parse layouts.yaml: %v", err)
	}
	if len(file.Layouts) == 0 {
		t.Fatalf("no fixtures")
	}

	for _, fx := range file.Layouts {
		t.Run(fx.Name, func(t *testing.T) {
			c := newTestContext(Options{})
			id := c.Types.RegisterEnum(fx.Name)
			cases := make([]types.EnumCase, 0, len(fx.Cases))
			for _, fc := range fx.Cases {
				ec := types.EnumCase{Name: fc.Name}
				if fc.Payload != "" {
					p, ok := builtinByName(c.Types, fc.Payload)
					if !ok {
						t.Fatalf("unknown payload type %q", fc.Payload)
					}
					ec.Payload = p
				}
				cases = append(cases, ec)
			}
			c.Types.SetEnumCases(id, cases)

			s := mustConvert(t, c, id)
			f := s.Facts()
			want := fx.Expect
			if f.Variant.String() != want.Strategy {
				t.Fatalf("expected strategy %s, got %s", want.Strategy, f.Variant)
			}
			if f.Size != want.Size || f.Align != want.Align || f.Stride != want.Stride {
				t.Fatalf("expected size/align/stride %d/%d/%d, got %d/%d/%d",
					want.Size, want.Align, want.Stride, f.Size, f.Align, f.Stride)
			}
			if f.PayloadBits != want.PayloadBits || f.ExtraTagBits != want.ExtraTagBits {
				t.Fatalf("expected payload/extra tag bits %d/%d, got %d/%d",
					want.PayloadBits, want.ExtraTagBits, f.PayloadBits, f.ExtraTagBits)
			}
			if f.ExtraInhabitantCount != want.ExtraInhabitants {
				t.Fatalf("expected %d extra inhabitants, got %d", want.ExtraInhabitants, f.ExtraInhabitantCount)
			}
			if want.PayloadTagBits != "" {
				expectHex(t, "payload tag bits", f.PayloadTagBits, want.PayloadTagBits)
			}
			fixed, ok := layout.AsFixed(s.TypeInfo())
			if !ok {
				t.Fatalf("expected a fixed layout")
			}
			if want.SpareBits != "" {
				expectHex(t, "spare bits", fixed.SpareBits(), want.SpareBits)
			}
			for _, el := range s.ElementsWithNoPayload() {
				lit, ok := want.Patterns[el.Name]
				if !ok {
					continue
				}
				expectHex(t, "pattern of "+el.Name, s.BitPatternForNoPayloadElement(el.Index), lit)
			}
		})
	}
}

func TestConvertEnumTypeCachesStrategy(t *testing.T) {
	c := newTestContext(Options{})
	id := c.Types.RegisterEnum("Color")
	c.Types.SetEnumCases(id, []types.EnumCase{{Name: "red"}, {Name: "green"}})

	first := mustConvert(t, c, id)
	second := mustConvert(t, c, id)
	if first != second {
		t.Fatalf("expected the cached strategy to be reused")
	}
	if got, ok := c.Strategy(id); !ok || got != first {
		t.Fatalf("expected Strategy to return the cached value")
	}
	if n := len(c.Converted()); n != 1 {
		t.Fatalf("expected 1 converted enum, got %d", n)
	}
}

func TestNestedEnumsConvertOnDemand(t *testing.T) {
	c := newTestContext(Options{})
	color := c.Types.RegisterEnum("Color")
	c.Types.SetEnumCases(color, []types.EnumCase{{Name: "red"}, {Name: "green"}, {Name: "blue"}})
	outer := c.Types.RegisterEnum("Paint")
	c.Types.SetEnumCases(outer, []types.EnumCase{{Name: "solid", Payload: color}, {Name: "clear"}})

	s := mustConvert(t, c, outer)
	order := c.Converted()
	if len(order) != 2 || order[0] != color || order[1] != outer {
		t.Fatalf("expected [Color Paint] conversion order, got %v", order)
	}
	if f := s.Facts(); f.Size != 1 || f.ExtraTagBits != 0 {
		t.Fatalf("expected Paint to fit in Color's byte, got size %d extra tag %d", f.Size, f.ExtraTagBits)
	}
	none := s.ElementsWithNoPayload()[0]
	if got := s.BitPatternForNoPayloadElement(none.Index).Lo64(); got != 3 {
		t.Fatalf("expected clear to take Color's first inhabitant 3, got %d", got)
	}
}

func TestRecursiveEnumIsRejected(t *testing.T) {
	c := newTestContext(Options{})
	b := c.Types.Builtins()
	list := c.Types.RegisterEnum("List")
	node := c.Types.RegisterStruct("Node")
	c.Types.SetStructFields(node, []types.StructField{{Name: "value", Type: b.Int64}, {Name: "next", Type: list}})
	c.Types.SetEnumCases(list, []types.EnumCase{{Name: "empty"}, {Name: "cons", Payload: node}})

	for attempt := 0; attempt < 2; attempt++ {
		_, err := c.ConvertEnumType(list)
		var ue *enumimpl.UnsupportedError
		if !errors.As(err, &ue) {
			t.Fatalf("attempt %d: expected UnsupportedError, got %v", attempt, err)
		}
		if ue.Kind != enumimpl.UnsupportedRecursivePayload || ue.Case != "cons" {
			t.Fatalf("attempt %d: expected recursive payload in cons, got %+v", attempt, ue)
		}
	}
	if _, ok := c.Strategy(list); ok {
		t.Fatalf("no strategy may be registered for a failed enum")
	}
}

func TestImportedCEnum(t *testing.T) {
	c := newTestContext(Options{})
	b := c.Types.Builtins()
	id := c.Types.RegisterEnum("Mode")
	c.Types.SetEnumImportedC(id, b.Int32)
	c.Types.SetEnumCases(id, []types.EnumCase{
		{Name: "read", RawValue: 1, HasRawValue: true},
		{Name: "write", RawValue: 2, HasRawValue: true},
		{Name: "legacyRead", RawValue: 1, HasRawValue: true},
	})

	s := mustConvert(t, c, id)
	f := s.Facts()
	if f.Variant != enumimpl.VariantCNoPayload || f.Size != 4 {
		t.Fatalf("expected 4-byte c-no-payload, got %s size %d", f.Variant, f.Size)
	}
	if got := s.BitPatternForNoPayloadElement(1).Lo64(); got != 2 {
		t.Fatalf("expected write to be stored as 2, got %d", got)
	}
}

func TestNonFixedMultiPayloadRequiresOption(t *testing.T) {
	build := func(c *Context) types.TypeID {
		id := c.Types.RegisterEnum("Result")
		c.Types.SetEnumCases(id, []types.EnumCase{
			{Name: "ok", Payload: c.Types.GenericParam("T")},
			{Name: "err", Payload: c.Types.Builtins().Int64},
		})
		return id
	}

	c := newTestContext(Options{})
	_, err := c.ConvertEnumType(build(c))
	var ue *enumimpl.UnsupportedError
	if !errors.As(err, &ue) || ue.Kind != enumimpl.UnsupportedNonFixedMultiPayload {
		t.Fatalf("expected non-fixed multi-payload error, got %v", err)
	}

	c = newTestContext(Options{AllowNonFixedMultiPayload: true})
	s := mustConvert(t, c, build(c))
	if k := s.Facts().Kind; k != layout.Opaque {
		t.Fatalf("expected opaque layout, got %s", k)
	}
}

func TestConvertRejectsNonEnum(t *testing.T) {
	c := newTestContext(Options{})
	if _, err := c.ConvertEnumType(c.Types.Builtins().Int64); err == nil {
		t.Fatalf("expected error for a non-enum type")
	}
}

func TestConversionIsTraced(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	c := newTestContext(Options{Tracer: ring})
	id := c.Types.RegisterEnum("Maybe")
	c.Types.SetEnumCases(id, []types.EnumCase{{Name: "none"}, {Name: "some", Payload: c.Types.GenericParam("T")}})
	mustConvert(t, c, id)

	var sawEnd, sawPoint bool
	for _, ev := range ring.Snapshot() {
		switch {
		case ev.Kind == trace.KindSpanEnd && ev.Name == "enum:Maybe":
			sawEnd = true
			if ev.Extra["strategy"] != "single-payload" || ev.Extra["kind"] != "opaque" {
				t.Fatalf("unexpected span extras %v", ev.Extra)
			}
		case ev.Kind == trace.KindPoint && ev.Name == "spare-bits-unavailable":
			sawPoint = true
			if ev.Extra["class"] != "dependent" {
				t.Fatalf("expected dependent size class, got %v", ev.Extra)
			}
		}
	}
	if !sawEnd || !sawPoint {
		t.Fatalf("expected span end and degradation point, got end=%v point=%v", sawEnd, sawPoint)
	}
}
