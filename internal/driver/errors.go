package driver

import (
	"errors"

	"enumgen/internal/declfile"
	"enumgen/internal/diag"
	"enumgen/internal/enumimpl"
	"enumgen/internal/irgen"
	"enumgen/internal/layout"
)

// CodeFor maps a conversion error to its diagnostic code.
func CodeFor(err error) diag.Code {
	var ue *enumimpl.UnsupportedError
	var ie *irgen.InvariantError
	var le *layout.LayoutError
	switch {
	case errors.As(err, &ue):
		switch ue.Kind {
		case enumimpl.UnsupportedRecursivePayload:
			return diag.LayoutRecursiveEnum
		case enumimpl.UnsupportedNonFixedMultiPayload:
			return diag.LayoutNonFixedMultiPayload
		case enumimpl.UnsupportedBadRawValue:
			return diag.LayoutBadRawValue
		default:
			return diag.LayoutInvalidCase
		}
	case errors.As(err, &ie):
		if ie.IsTagCollision() {
			return diag.LayoutTagCollision
		}
		return diag.LayoutInvariant
	case errors.As(err, &le):
		return diag.LayoutUnsized
	default:
		return diag.LayoutInvariant
	}
}

// reportLayoutError ties a failed conversion to the enum declaration and,
// when the fault lies in one of its cases, to that case.
func reportLayoutError(r diag.Reporter, d declfile.Decl, err error) {
	b := diag.ReportError(r, CodeFor(err), d.Span, err.Error())
	var ue *enumimpl.UnsupportedError
	if errors.As(err, &ue) && ue.Case != "" && ue.Enum == d.Name {
		if sp, ok := d.CaseSpan(ue.Case); ok {
			b.WithNote(sp, "case "+ue.Case+" declared here")
		}
	}
	if CodeFor(err) == diag.LayoutNonFixedMultiPayload {
		b.WithNote(d.Span, "rerun with --allow-nonfixed-multipayload to complete the layout at runtime")
	}
	b.Emit()
}
