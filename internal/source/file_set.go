package source

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet owns the declaration files of one run and resolves spans into
// line/column positions. It is not safe for concurrent writes.
type FileSet struct {
	files  []File
	byPath map[string]FileID // latest id per normalized path
}

func NewFileSet() *FileSet {
	return &FileSet{byPath: make(map[string]FileID)}
}

// Add stores already normalized content under a fresh FileID, even when
// path was added before. Lookups by path see the newest file.
func (s *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("source: %s is too large: %w", path, err))
	}
	n, err := safecast.Conv[uint32](len(s.files))
	if err != nil {
		panic(fmt.Errorf("source: too many files: %w", err))
	}
	id := FileID(n)
	path = normalizePath(path)
	s.files = append(s.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	s.byPath[path] = id
	return id
}

// Load reads path from disk, strips a BOM, rewrites CRLF line endings and
// adds the result.
func (s *FileSet) Load(path string) (FileID, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return 0, err
	}
	var flags FileFlags
	content, bom := removeBOM(raw)
	if bom {
		flags |= FileHadBOM
	}
	content, crlf := normalizeCRLF(content)
	if crlf {
		flags |= FileNormalizedCRLF
	}
	return s.Add(path, content, flags), nil
}

// AddVirtual adds in-memory content under name.
func (s *FileSet) AddVirtual(name string, content []byte) FileID {
	return s.Add(name, content, FileVirtual)
}

// Get returns the file with the given ID, or nil.
func (s *FileSet) Get(id FileID) *File {
	if int(id) >= len(s.files) {
		return nil
	}
	return &s.files[id]
}

// GetByPath returns the newest file added under path.
func (s *FileSet) GetByPath(path string) (*File, bool) {
	id, ok := s.byPath[normalizePath(path)]
	if !ok {
		return nil, false
	}
	return &s.files[id], true
}

func (s *FileSet) Len() int { return len(s.files) }

// Resolve converts both ends of span into line and column positions.
func (s *FileSet) Resolve(span Span) (start, end LineCol) {
	f := s.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Whole spans the entire file.
func (f *File) Whole() Span {
	return Span{File: f.ID, End: uint32(len(f.Content))} //nolint:gosec // G115: checked in Add
}

// Find spans the first occurrence of needle at or after from. It returns
// an empty span at from when needle does not occur.
func (f *File) Find(needle string, from uint32) Span {
	if int(from) > len(f.Content) {
		from = uint32(len(f.Content)) //nolint:gosec // G115: checked in Add
	}
	i := bytes.Index(f.Content[from:], []byte(needle))
	if i < 0 {
		return Span{File: f.ID, Start: from, End: from}
	}
	//nolint:gosec // G115: content length checked in Add
	start, end := from+uint32(i), from+uint32(i+len(needle))
	return Span{File: f.ID, Start: start, End: end}
}

// LineSpan spans the 1-based line n without its newline.
func (f *File) LineSpan(n uint32) (Span, bool) {
	if n == 0 {
		return Span{File: f.ID}, false
	}
	var start uint32
	if n >= 2 {
		if int(n-2) >= len(f.LineIdx) {
			return Span{File: f.ID}, false
		}
		start = f.LineIdx[n-2] + 1
	}
	end := uint32(len(f.Content)) //nolint:gosec // G115: checked in Add
	if int(n-1) < len(f.LineIdx) {
		end = f.LineIdx[n-1]
	}
	return Span{File: f.ID, Start: start, End: end}, true
}

// GetLine returns the 1-based line n, or "" when it does not exist.
func (f *File) GetLine(n uint32) string {
	sp, ok := f.LineSpan(n)
	if !ok || sp.Start > sp.End {
		return ""
	}
	return string(f.Content[sp.Start:sp.End])
}
