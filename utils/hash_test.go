package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChunkIDStable(t *testing.T) {
	a := ChunkID("doc1", 0, 0)
	b := ChunkID("doc1", 0, 0)
	if a != b {
		t.Fatalf("id not stable: %s vs %s", a, b)
	}
	if len(a) != 24 {
		t.Fatalf("expected 24 hex chars, got %d", len(a))
	}

	if ChunkID("doc1", 0, 0) == ChunkID("doc1", 0, 800) {
		t.Error("different offsets must produce different ids")
	}
	if ChunkID("doc1", 0, 0) == ChunkID("doc1", 1, 0) {
		t.Error("different pages must produce different ids")
	}
	if ChunkID("doc1", 0, 0) == ChunkID("doc2", 0, 0) {
		t.Error("different documents must produce different ids")
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	if _, err := FileHash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
