package declfile

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"enumgen/internal/types"
)

var builtinNames = map[string]func(types.Builtins) types.TypeID{
	"Unit":       func(b types.Builtins) types.TypeID { return b.Unit },
	"Bool":       func(b types.Builtins) types.TypeID { return b.Bool },
	"Int8":       func(b types.Builtins) types.TypeID { return b.Int8 },
	"Int16":      func(b types.Builtins) types.TypeID { return b.Int16 },
	"Int32":      func(b types.Builtins) types.TypeID { return b.Int32 },
	"Int64":      func(b types.Builtins) types.TypeID { return b.Int64 },
	"UInt8":      func(b types.Builtins) types.TypeID { return b.Uint8 },
	"UInt16":     func(b types.Builtins) types.TypeID { return b.Uint16 },
	"UInt32":     func(b types.Builtins) types.TypeID { return b.Uint32 },
	"UInt64":     func(b types.Builtins) types.TypeID { return b.Uint64 },
	"Float32":    func(b types.Builtins) types.TypeID { return b.Float32 },
	"Float64":    func(b types.Builtins) types.TypeID { return b.Float64 },
	"RawPointer": func(b types.Builtins) types.TypeID { return b.RawPointer },
	"Ref":        func(b types.Builtins) types.TypeID { return b.Ref },
	"UnknownRef": func(b types.Builtins) types.TypeID { return b.UnknownRef },
	"String":     func(b types.Builtins) types.TypeID { return b.String },
}

func isBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

const resilientPrefix = "resilient:"

// typeExpr resolves a type expression:
//
//	Int64 | Point | T | [4]Int8 | resilient:Name
func (l *loader) typeExpr(expr string, scope map[string]types.TypeID) (types.TypeID, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return types.NoTypeID, fmt.Errorf("empty type")
	case strings.HasPrefix(expr, "["):
		end := strings.IndexByte(expr, ']')
		if end < 0 {
			return types.NoTypeID, fmt.Errorf("unterminated array type %q", expr)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(expr[1:end]), 10, 32)
		if err != nil {
			return types.NoTypeID, fmt.Errorf("bad array length in %q", expr)
		}
		count, err := safecast.Conv[uint32](n)
		if err != nil {
			return types.NoTypeID, fmt.Errorf("array length overflow in %q: %w", expr, err)
		}
		elem, err := l.typeExpr(expr[end+1:], scope)
		if err != nil {
			return types.NoTypeID, err
		}
		return l.unit.Types.Intern(types.MakeArray(elem, count)), nil
	case strings.HasPrefix(expr, resilientPrefix):
		name := strings.TrimSpace(strings.TrimPrefix(expr, resilientPrefix))
		if name == "" {
			return types.NoTypeID, fmt.Errorf("resilient type without a name")
		}
		return l.unit.Types.Resilient(name), nil
	}

	if mk, ok := builtinNames[expr]; ok {
		return mk(l.unit.Types.Builtins()), nil
	}
	if id, ok := scope[expr]; ok {
		return id, nil
	}
	if id, ok := l.names[expr]; ok {
		return id, nil
	}
	return types.NoTypeID, fmt.Errorf("unknown type %q", expr)
}
