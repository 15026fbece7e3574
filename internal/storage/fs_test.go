package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempInbox(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempInbox(t)
	content := []byte(`{"criteria":[]}`)
	if err := s.Write("request.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("request.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempInbox(t)
	if err := s.Write("a/b/c.query", []byte("extension:pdf")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.query")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "extension:pdf" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("del.yaml", []byte("criteria: []"))
	if err := s.Delete("del.yaml"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.yaml"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("a.json", []byte("{}"))
	_ = s.Write("sub/b.yaml", []byte("criteria: []"))
	_ = s.Write("sub/c.YML", []byte("criteria: []"))
	_ = s.Write("a.query", []byte("result"))
	_ = s.Write("readme.txt", []byte("not a document"))
	_ = s.Write(".hidden/d.json", []byte("{}"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}
}

func TestResultPath(t *testing.T) {
	cases := map[string]string{
		"a.json":          "a.query",
		"sub/b.yaml":      "sub/b.query",
		"dotted.name.yml": "dotted.name.query",
	}
	for in, want := range cases {
		if got := ResultPath(in, QueryExt); got != want {
			t.Errorf("ResultPath(%q) = %q, want %q", in, got, want)
		}
	}
	if got := ResultPath("x.json", ErrorExt); got != "x.error" {
		t.Errorf("error path = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempInbox(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("atomic.query", []byte("original"))

	updated := []byte("updated")
	if err := s.Write("atomic.query", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.query")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".ansuz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "ansuz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
