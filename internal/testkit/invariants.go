// Package testkit holds invariant checks shared by the tests of the layout
// pipeline.
package testkit

import (
	"bytes"
	"fmt"
	"math/bits"

	"fortio.org/safecast"

	"enumgen/internal/abicache"
	"enumgen/internal/declfile"
	"enumgen/internal/source"
)

// CheckDeclSpans runs the span invariants of a decoded declaration file:
// 1) every declaration span is non-empty, inside the file and names the declaration
// 2) every case span is non-empty, inside the file and starts after its enum
// 3) case spans of one enum are strictly increasing
func CheckDeclSpans(u *declfile.Unit) error {
	if u == nil || u.File == nil {
		return fmt.Errorf("nil unit or file")
	}
	lenContent, err := safecast.Conv[uint32](len(u.File.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	inFile := func(sp source.Span) error {
		if sp.End <= sp.Start {
			return fmt.Errorf("empty span: %v", sp)
		}
		if sp.File != u.File.ID {
			return fmt.Errorf("span file mismatch: got=%d want=%d", sp.File, u.File.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("span end beyond content: %d > %d", sp.End, lenContent)
		}
		return nil
	}

	decls := append(append([]declfile.Decl(nil), u.Structs...), u.Enums...)
	for _, d := range decls {
		// 1) declaration span
		if err := inFile(d.Span); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if !bytes.Contains(u.File.Content[d.Span.Start:d.Span.End], []byte(d.Name)) {
			return fmt.Errorf("%s: span %v does not name the declaration", d.Name, d.Span)
		}

		// 2) case spans; 3) ordering
		prev := d.Span.Start
		for _, c := range d.Cases {
			if err := inFile(c.Span); err != nil {
				return fmt.Errorf("%s.%s: %w", d.Name, c.Name, err)
			}
			if c.Span.Start <= prev {
				return fmt.Errorf("%s.%s: case span %v does not follow %d", d.Name, c.Name, c.Span, prev)
			}
			prev = c.Span.Start
		}
	}
	return nil
}

// CheckRecord runs the invariants every persisted layout satisfies:
// 1) alignment is a power of two and the stride is a non-zero multiple of it
// 2) a fixed layout fits in its stride
// 3) case names are unique and empty cases have distinct storage patterns
func CheckRecord(r abicache.Record) error {
	if r.Kind != "opaque" {
		// 1) alignment and stride
		if r.Align <= 0 || bits.OnesCount(uint(r.Align)) != 1 {
			return fmt.Errorf("%s: alignment %d is not a power of two", r.Name, r.Align)
		}
		if r.Stride <= 0 || r.Stride%r.Align != 0 {
			return fmt.Errorf("%s: stride %d is not a positive multiple of %d", r.Name, r.Stride, r.Align)
		}
		// 2) size
		if r.Size < 0 || r.Size > r.Stride {
			return fmt.Errorf("%s: size %d does not fit stride %d", r.Name, r.Size, r.Stride)
		}
	}

	// 3) cases
	names := make(map[string]struct{}, len(r.Cases))
	patterns := make(map[string]string, len(r.Cases))
	for _, c := range r.Cases {
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("%s: duplicate case %s", r.Name, c.Name)
		}
		names[c.Name] = struct{}{}
		if c.Pattern == "" {
			continue
		}
		if other, dup := patterns[c.Pattern]; dup {
			return fmt.Errorf("%s: cases %s and %s share pattern %s", r.Name, other, c.Name, c.Pattern)
		}
		patterns[c.Pattern] = c.Name
	}
	return nil
}
