// Package declfile loads enum and struct declarations from TOML files into a
// type interner.
//
//	[target]
//	triple = "x86_64-linux-gnu"
//
//	[[struct]]
//	name = "Point"
//	[[struct.field]]
//	name = "x"
//	type = "Int64"
//
//	[[enum]]
//	name = "Shape"
//	[[enum.case]]
//	name = "dot"
//	payload = "Point"
//	[[enum.case]]
//	name = "empty"
package declfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"enumgen/internal/diag"
	"enumgen/internal/layout"
	"enumgen/internal/source"
	"enumgen/internal/types"
)

type fileConfig struct {
	Target  targetConfig `toml:"target"`
	Structs []structConfig `toml:"struct"`
	Enums   []enumConfig   `toml:"enum"`
}

type targetConfig struct {
	Triple string `toml:"triple"`
}

type structConfig struct {
	Name    string        `toml:"name"`
	Generic []string      `toml:"generic"`
	Fields  []fieldConfig `toml:"field"`
}

type fieldConfig struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type enumConfig struct {
	Name      string       `toml:"name"`
	Generic   []string     `toml:"generic"`
	ImportedC bool         `toml:"imported_c"`
	CType     string       `toml:"c_type"`
	Cases     []caseConfig `toml:"case"`
}

type caseConfig struct {
	Name    string `toml:"name"`
	Payload string `toml:"payload"`
	Raw     *int64 `toml:"raw"`
}

// Decl is one named declaration of a unit.
type Decl struct {
	Name string
	ID   types.TypeID
	Span source.Span
	// Cases locate the cases of an enum in declaration order.
	Cases []CaseDecl
}

// CaseDecl is the location of one enum case.
type CaseDecl struct {
	Name string
	Span source.Span
}

// CaseSpan returns the location of the case called name.
func (d Decl) CaseSpan(name string) (source.Span, bool) {
	for _, c := range d.Cases {
		if c.Name == name {
			return c.Span, true
		}
	}
	return source.Span{}, false
}

// Unit is a loaded declaration file.
type Unit struct {
	File    *source.File
	Target  layout.Target
	Types   *types.Interner
	Structs []Decl
	Enums   []Decl
}

// Enum looks up a declared enum by name.
func (u *Unit) Enum(name string) (Decl, bool) {
	for _, d := range u.Enums {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// Decode parses content without a file set; it is used by tests and by the
// cache, which only need the types.
func Decode(name string, content []byte, r diag.Reporter) (*Unit, bool) {
	fs := source.NewFileSet()
	return Load(fs, fs.AddVirtual(name, content), r)
}

// Load decodes the file id of fs. Problems are reported to r; the returned
// bool is false when any error was reported, in which case the unit holds
// whatever could be declared.
func Load(fs *source.FileSet, id source.FileID, r diag.Reporter) (*Unit, bool) {
	f := fs.Get(id)
	l := &loader{
		file:     f,
		reporter: r,
		unit:     &Unit{File: f, Types: types.NewInterner(), Target: layout.X86_64LinuxGNU()},
		names:    make(map[string]types.TypeID),
		cursor:   make(map[string]uint32),
	}

	var cfg fileConfig
	meta, err := toml.Decode(string(f.Content), &cfg)
	if err != nil {
		l.parseError(err)
		return l.unit, false
	}
	for _, key := range meta.Undecoded() {
		l.warn(diag.DeclParse, l.locateKey(key), fmt.Sprintf("unknown key %q", key.String()))
	}

	if meta.IsDefined("target", "triple") {
		t, err := layout.TargetByTriple(strings.TrimSpace(cfg.Target.Triple))
		if err != nil {
			l.errorf(diag.DeclBadTarget, f.Find(cfg.Target.Triple, 0), "%v", err)
		} else {
			l.unit.Target = t
		}
	}

	l.declare(cfg)
	l.resolve(cfg)
	return l.unit, !l.failed
}

type loader struct {
	file     *source.File
	reporter diag.Reporter
	unit     *Unit
	names    map[string]types.TypeID
	cursor   map[string]uint32 // next search offset per declared name
	failed   bool
}

func (l *loader) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	l.failed = true
	diag.ReportError(l.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (l *loader) warn(code diag.Code, sp source.Span, msg string) {
	diag.ReportWarning(l.reporter, code, sp, msg).Emit()
}

func (l *loader) parseError(err error) {
	var perr toml.ParseError
	sp := l.file.Whole()
	msg := err.Error()
	if errors.As(err, &perr) {
		if line, ok := l.file.LineSpan(uint32(perr.Position.Line)); ok { //nolint:gosec // G115: line numbers are positive
			sp = line
		}
		msg = perr.Message
	}
	l.errorf(diag.DeclParse, sp, "%s", msg)
}

// locate spans the `name = "value"` line of the next declaration called value.
func (l *loader) locate(value string) source.Span {
	re := regexp.MustCompile(`name\s*=\s*["']` + regexp.QuoteMeta(value) + `["']`)
	from := l.cursor[value]
	if int(from) > len(l.file.Content) {
		return l.file.Whole()
	}
	loc := re.FindIndex(l.file.Content[from:])
	if loc == nil {
		return source.Span{File: l.file.ID, Start: from, End: from}
	}
	//nolint:gosec // G115: content length checked by the file set
	sp := source.Span{File: l.file.ID, Start: from + uint32(loc[0]), End: from + uint32(loc[1])}
	l.cursor[value] = sp.End
	return sp
}

func (l *loader) locateKey(key toml.Key) source.Span {
	if len(key) == 0 {
		return l.file.Whole()
	}
	return l.file.Find(key[len(key)-1], 0)
}

// declare registers every nominal type so that declarations may refer to
// each other in any order.
func (l *loader) declare(cfg fileConfig) {
	for _, s := range cfg.Structs {
		sp := l.locate(s.Name)
		if !l.checkName("struct", s.Name, sp) {
			continue
		}
		id := l.unit.Types.RegisterStruct(s.Name)
		l.names[s.Name] = id
		l.unit.Structs = append(l.unit.Structs, Decl{Name: s.Name, ID: id, Span: sp})
	}
	for _, e := range cfg.Enums {
		sp := l.locate(e.Name)
		if !l.checkName("enum", e.Name, sp) {
			continue
		}
		id := l.unit.Types.RegisterEnum(e.Name)
		l.names[e.Name] = id
		l.unit.Enums = append(l.unit.Enums, Decl{Name: e.Name, ID: id, Span: sp})
	}
}

func (l *loader) checkName(kind, name string, sp source.Span) bool {
	switch {
	case strings.TrimSpace(name) == "":
		l.errorf(diag.DeclParse, sp, "%s without a name", kind)
		return false
	case isBuiltin(name):
		l.errorf(diag.DeclDuplicate, sp, "%s %s shadows a builtin type", kind, name)
		return false
	}
	if _, dup := l.names[name]; dup {
		l.errorf(diag.DeclDuplicate, sp, "%s is declared more than once", name)
		return false
	}
	return true
}

func (l *loader) resolve(cfg fileConfig) {
	structs := l.byName(l.unit.Structs)
	for _, s := range cfg.Structs {
		d, ok := structs[s.Name]
		if !ok || d.ID != l.names[s.Name] {
			continue
		}
		delete(structs, s.Name)
		scope := l.scope(s.Generic)
		fields := make([]types.StructField, 0, len(s.Fields))
		seen := make(map[string]bool, len(s.Fields))
		for _, fc := range s.Fields {
			if seen[fc.Name] {
				l.errorf(diag.DeclDuplicate, d.Span, "struct %s: field %s is declared more than once", s.Name, fc.Name)
				continue
			}
			seen[fc.Name] = true
			ft, err := l.typeExpr(fc.Type, scope)
			if err != nil {
				l.errorf(diag.DeclUnknownType, l.fieldSpan(d.Span, fc.Type), "struct %s: field %s: %v", s.Name, fc.Name, err)
				continue
			}
			fields = append(fields, types.StructField{Name: fc.Name, Type: ft})
		}
		l.unit.Types.SetStructFields(d.ID, fields)
	}

	for i := range l.unit.Enums {
		d := &l.unit.Enums[i]
		ec, ok := findEnum(cfg.Enums, d.Name)
		if !ok {
			continue
		}
		l.resolveEnum(d, ec)
	}
}

func (l *loader) byName(decls []Decl) map[string]Decl {
	out := make(map[string]Decl, len(decls))
	for _, d := range decls {
		out[d.Name] = d
	}
	return out
}

func findEnum(enums []enumConfig, name string) (enumConfig, bool) {
	for _, e := range enums {
		if e.Name == name {
			return e, true
		}
	}
	return enumConfig{}, false
}

func (l *loader) resolveEnum(d *Decl, ec enumConfig) {
	if len(ec.Cases) == 0 {
		l.warn(diag.DeclEmptyEnum, d.Span, fmt.Sprintf("enum %s declares no cases", ec.Name))
	}
	scope := l.scope(ec.Generic)
	cases := make([]types.EnumCase, 0, len(ec.Cases))
	seen := make(map[string]bool, len(ec.Cases))
	prev := d.Span.End
	for _, cc := range ec.Cases {
		sp := l.caseSpan(cc.Name, prev)
		prev = sp.End
		d.Cases = append(d.Cases, CaseDecl{Name: cc.Name, Span: sp})
		if strings.TrimSpace(cc.Name) == "" {
			l.errorf(diag.DeclParse, sp, "enum %s: case without a name", ec.Name)
			continue
		}
		if seen[cc.Name] {
			l.errorf(diag.DeclDuplicate, sp, "enum %s: case %s is declared more than once", ec.Name, cc.Name)
			continue
		}
		seen[cc.Name] = true

		c := types.EnumCase{Name: cc.Name}
		if cc.Payload != "" {
			pt, err := l.typeExpr(cc.Payload, scope)
			if err != nil {
				l.errorf(diag.DeclUnknownType, sp, "enum %s: case %s: %v", ec.Name, cc.Name, err)
				continue
			}
			c.Payload = pt
		}
		if cc.Raw != nil {
			if !ec.ImportedC {
				l.errorf(diag.DeclParse, sp, "enum %s: case %s: raw values need imported_c = true", ec.Name, cc.Name)
				continue
			}
			c.RawValue, c.HasRawValue = *cc.Raw, true
		}
		cases = append(cases, c)
	}

	if ec.ImportedC {
		name := ec.CType
		if name == "" {
			name = "Int32"
		}
		ct, err := l.typeExpr(name, nil)
		if err != nil {
			l.errorf(diag.DeclUnknownType, d.Span, "enum %s: c_type: %v", ec.Name, err)
		} else {
			l.unit.Types.SetEnumImportedC(d.ID, ct)
		}
	}
	l.unit.Types.SetEnumCases(d.ID, cases)
}

// caseSpan finds the case line at or after from.
func (l *loader) caseSpan(name string, from uint32) source.Span {
	re := regexp.MustCompile(`name\s*=\s*["']` + regexp.QuoteMeta(name) + `["']`)
	if int(from) > len(l.file.Content) {
		from = 0
	}
	loc := re.FindIndex(l.file.Content[from:])
	if loc == nil {
		return source.Span{File: l.file.ID, Start: from, End: from}
	}
	//nolint:gosec // G115: content length checked by the file set
	return source.Span{File: l.file.ID, Start: from + uint32(loc[0]), End: from + uint32(loc[1])}
}

func (l *loader) fieldSpan(decl source.Span, typeName string) source.Span {
	sp := l.file.Find(`"`+typeName+`"`, decl.End)
	if sp.Empty() {
		return decl
	}
	return sp
}

func (l *loader) scope(generic []string) map[string]types.TypeID {
	if len(generic) == 0 {
		return nil
	}
	out := make(map[string]types.TypeID, len(generic))
	for _, g := range generic {
		out[g] = l.unit.Types.GenericParam(g)
	}
	return out
}
