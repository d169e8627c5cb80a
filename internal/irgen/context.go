// Package irgen lowers declared types to layouts and owns the per-unit map
// from enum type to its selected strategy.
package irgen

import (
	"errors"
	"fmt"
	"strconv"

	"enumgen/internal/enumimpl"
	"enumgen/internal/layout"
	"enumgen/internal/trace"
	"enumgen/internal/types"
)

// Options configure a conversion context.
type Options struct {
	// VerifyLayouts runs the layout self-check on every converted enum.
	VerifyLayouts bool
	// AllowNonFixedMultiPayload lets runtime-sized multi-payload enums be
	// completed by the runtime.
	AllowNonFixedMultiPayload bool
	Tracer                    trace.Tracer
	// ParentSpan parents the per-enum spans.
	ParentSpan uint64
}

// Context converts the types of one compilation unit. It installs itself
// as the enum lowering of its layout engine, so enums reached through
// struct fields, arrays or other enums are converted on demand.
type Context struct {
	Engine *layout.LayoutEngine
	Types  *types.Interner

	opts       Options
	strategies map[types.TypeID]enumimpl.Strategy
	order      []types.TypeID
}

// NewContext creates a Context for target over the types of in.
func NewContext(target layout.Target, in *types.Interner, opts Options) *Context {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	c := &Context{
		Engine:     layout.New(target, in),
		Types:      in,
		opts:       opts,
		strategies: make(map[types.TypeID]enumimpl.Strategy, 16),
	}
	c.Engine.Enums = c
	return c
}

// Options returns the options the context was created with.
func (c *Context) Options() Options { return c.opts }

// ConvertEnumType returns the strategy of the enum id, selecting it on first
// use. Failures are memoised by the layout engine and returned again on
// every later request; nothing is registered for a failed enum.
func (c *Context) ConvertEnumType(id types.TypeID) (enumimpl.Strategy, error) {
	if s, ok := c.strategies[id]; ok {
		return s, nil
	}
	if _, ok := c.Types.EnumInfo(id); !ok {
		return nil, fmt.Errorf("%s is not an enum", c.Types.String(id))
	}
	if _, err := c.Engine.TypeInfoOf(id); err != nil {
		return nil, err
	}
	s, ok := c.strategies[id]
	if !ok {
		return nil, fmt.Errorf("enum %s: no strategy registered", c.Types.Name(id))
	}
	return s, nil
}

// Strategy returns an already converted strategy.
func (c *Context) Strategy(id types.TypeID) (enumimpl.Strategy, bool) {
	s, ok := c.strategies[id]
	return s, ok
}

// Converted lists the successfully converted enums in completion order.
func (c *Context) Converted() []types.TypeID {
	return append([]types.TypeID(nil), c.order...)
}

// LowerEnum implements layout.EnumLowering.
func (c *Context) LowerEnum(e *layout.LayoutEngine, id types.TypeID) (layout.TypeInfo, error) {
	info, ok := c.Types.EnumInfo(id)
	if !ok {
		return nil, &layout.LayoutError{Kind: layout.LayoutErrUnknownType, Type: id, Name: c.Types.String(id)}
	}

	span := trace.Begin(c.opts.Tracer, trace.ScopeType, "enum:"+info.Name, c.opts.ParentSpan)

	decl, err := c.enumDecl(e, id, info, span.ID())
	if err != nil {
		span.End("error")
		return nil, err
	}
	s, err := enumimpl.SelectStrategy(decl, enumimpl.Options{
		AllowNonFixedMultiPayload: c.opts.AllowNonFixedMultiPayload,
	})
	if err != nil {
		span.WithExtra("error", err.Error())
		span.End("unsupported")
		return nil, err
	}
	if c.opts.VerifyLayouts {
		if err := Verify(s); err != nil {
			span.WithExtra("error", err.Error())
			span.End("invariant")
			return nil, err
		}
	}

	f := s.Facts()
	span.WithExtra("strategy", f.Variant.String()).
		WithExtra("kind", f.Kind.String()).
		WithExtra("size", strconv.Itoa(f.Size)).
		WithExtra("payload_bits", strconv.Itoa(f.PayloadBits)).
		WithExtra("extra_tag_bits", strconv.Itoa(f.ExtraTagBits))
	if f.PayloadTagBits.Width() > 0 {
		span.WithExtra("spare_tag_bits", f.PayloadTagBits.Hex())
	}
	span.End("")

	c.strategies[id] = s
	c.order = append(c.order, id)
	return s.TypeInfo(), nil
}

func (c *Context) enumDecl(e *layout.LayoutEngine, id types.TypeID, info *types.EnumInfo, span uint64) (enumimpl.EnumDecl, error) {
	decl := enumimpl.EnumDecl{
		Name:      info.Name,
		ImportedC: info.ImportedC,
		Target:    e.Target,
		Cases:     make([]enumimpl.CaseDecl, 0, len(info.Cases)),
	}
	if info.ImportedC {
		ct, err := e.FixedTypeInfoOf(info.CType)
		if err != nil {
			return decl, fmt.Errorf("enum %s: C storage type: %w", info.Name, err)
		}
		decl.CType = ct
	}

	for _, ec := range info.Cases {
		cd := enumimpl.CaseDecl{Name: ec.Name, RawValue: ec.RawValue, HasRawValue: ec.HasRawValue}
		if ec.HasPayload() {
			ti, err := e.TypeInfoOf(ec.Payload)
			switch {
			case err == nil:
				cd.Payload = ti
				if ti.SizeClass() != layout.SizeFixed {
					trace.Point(c.opts.Tracer, trace.ScopeType, "spare-bits-unavailable",
						info.Name+"."+ec.Name, span, map[string]string{"payload": ti.Name(), "class": ti.SizeClass().String()})
				}
			case isRecursion(err, id) || e.InProgress(ec.Payload) || c.Types.Contains(ec.Payload, id):
				cd.Recursive = true
			default:
				return decl, fmt.Errorf("enum %s: case %s: %w", info.Name, ec.Name, err)
			}
		}
		decl.Cases = append(decl.Cases, cd)
	}
	return decl, nil
}

func isRecursion(err error, id types.TypeID) bool {
	var le *layout.LayoutError
	return errors.As(err, &le) && le.InCycle(id)
}
