package enumimpl

import "fmt"

// UnsupportedKind classifies constructs the layout engine refuses to lay out.
type UnsupportedKind uint8

const (
	// UnsupportedRecursivePayload is a case whose payload contains the enum itself.
	UnsupportedRecursivePayload UnsupportedKind = iota + 1
	// UnsupportedNonFixedMultiPayload is a multi-payload enum with a runtime-sized payload.
	UnsupportedNonFixedMultiPayload
	// UnsupportedBadRawValue is a C-imported case without a representable raw value.
	UnsupportedBadRawValue
	// UnsupportedInvalidCase is a malformed case list or C storage type.
	UnsupportedInvalidCase
)

func (k UnsupportedKind) String() string {
	switch k {
	case UnsupportedRecursivePayload:
		return "recursive payload"
	case UnsupportedNonFixedMultiPayload:
		return "non-fixed multi-payload"
	case UnsupportedBadRawValue:
		return "bad raw value"
	case UnsupportedInvalidCase:
		return "invalid case"
	default:
		return fmt.Sprintf("UnsupportedKind(%d)", k)
	}
}

// UnsupportedError reports an enum that cannot be given a layout. Nothing is
// registered for the enum when it is returned.
type UnsupportedError struct {
	Kind   UnsupportedKind
	Enum   string
	Case   string
	Detail string
}

func (e *UnsupportedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("enum %s: unsupported %s", e.Enum, e.Kind)
	if e.Case != "" {
		msg += fmt.Sprintf(" in case %s", e.Case)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
