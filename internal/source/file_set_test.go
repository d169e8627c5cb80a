package source

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("decls.toml", []byte("[[enum]]\nname = \"Color\"\n\n[[enum.case]]\n"))
	f := fs.Get(id)

	sp := f.Find(`"Color"`, 0)
	start, end := fs.Resolve(sp)
	if start.Line != 2 || start.Col != 8 || end.Col != 15 {
		t.Fatalf("expected 2:8-2:15, got %d:%d-%d:%d", start.Line, start.Col, end.Line, end.Col)
	}
	if got := f.GetLine(2); got != `name = "Color"` {
		t.Fatalf("unexpected line 2: %q", got)
	}
	if got := f.GetLine(3); got != "" {
		t.Fatalf("expected empty line 3, got %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("expected no line 9, got %q", got)
	}
}

func TestResolveNewlineBelongsToItsLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.toml", []byte("ab\ncd"))
	pos, _ := fs.Resolve(Span{File: id, Start: 2, End: 2})
	if pos.Line != 1 || pos.Col != 3 {
		t.Fatalf("expected 1:3, got %d:%d", pos.Line, pos.Col)
	}
	pos, _ = fs.Resolve(Span{File: id, Start: 3, End: 3})
	if pos.Line != 2 || pos.Col != 1 {
		t.Fatalf("expected 2:1, got %d:%d", pos.Line, pos.Col)
	}
}

func TestFindMissingNeedle(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("a.toml", []byte("name = 1")))
	if sp := f.Find("missing", 3); !sp.Empty() || sp.Start != 3 {
		t.Fatalf("expected empty span at 3, got %v", sp)
	}
}

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decls.toml")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFa = 1\r\nb = 2\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a = 1\nb = 2\n" {
		t.Fatalf("unexpected content %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", f.Flags)
	}
	again, ok := fs.GetByPath(path)
	if !ok || again.ID != id || again.Hash != sha256.Sum256([]byte("a = 1\nb = 2\n")) {
		t.Fatalf("expected the hash of the normalized content")
	}
}
