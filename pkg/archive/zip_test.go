package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func makeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestExtractToCache(t *testing.T) {
	zipPath := makeZip(t, map[string]string{
		"index.json":       `{"title":"JMdict"}`,
		"term_bank_1.json": `[["猫","ねこ",["cat"]]]`,
	})
	e := NewExtractor(t.TempDir())

	dir, err := e.ExtractToCache(zipPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, name := range []string{"index.json", "term_bank_1.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing extracted file %s: %v", name, err)
		}
	}
}

func TestExtractToCacheUniqueDirs(t *testing.T) {
	zipPath := makeZip(t, map[string]string{"index.json": `{"title":"X"}`})
	e := NewExtractor(t.TempDir())

	dir1, err := e.ExtractToCache(zipPath)
	if err != nil {
		t.Fatalf("extract 1: %v", err)
	}
	dir2, err := e.ExtractToCache(zipPath)
	if err != nil {
		t.Fatalf("extract 2: %v", err)
	}
	if dir1 == dir2 {
		t.Fatalf("expected unique extraction dirs, both %s", dir1)
	}
}

func TestExtractFlattensPaths(t *testing.T) {
	// Nested and escaping entry names end up as flat files in the
	// destination, never outside it.
	zipPath := makeZip(t, map[string]string{
		"sub/dir/shard.json": `[]`,
		"../escape.json":     `[]`,
	})
	cache := t.TempDir()
	e := NewExtractor(cache)

	dir, err := e.ExtractToCache(zipPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "shard.json")); err != nil {
		t.Fatalf("nested entry not flattened: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err != nil {
		t.Fatalf("escaping entry not contained: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "..", "escape.json")); err == nil {
		t.Fatal("entry escaped the cache directory")
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := NewExtractor(t.TempDir())
	if _, err := e.ExtractToCache(path); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestClearCache(t *testing.T) {
	cache := t.TempDir()
	e := NewExtractor(cache)
	if err := os.MkdirAll(filepath.Join(cache, "old-extraction"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cache, "stray.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	removed, err := e.ClearCache()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 entries removed, got %d", removed)
	}
	entries, err := os.ReadDir(cache)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache not empty: %v", entries)
	}

	// Second run is a no-op, as is a missing cache dir.
	removed, err = e.ClearCache()
	if err != nil || removed != 0 {
		t.Fatalf("second clear: removed=%d err=%v", removed, err)
	}
	missing := NewExtractor(filepath.Join(cache, "does-not-exist"))
	if _, err := missing.ClearCache(); err != nil {
		t.Fatalf("missing cache dir should not error: %v", err)
	}
}

func TestReadIndex(t *testing.T) {
	zipPath := makeZip(t, map[string]string{
		"jmdict_index.json": `{"title":"JMdict","revision":"1.0"}`,
		"term_bank_1.json":  `[]`,
	})
	data, err := ReadIndex(zipPath)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if string(data) != `{"title":"JMdict","revision":"1.0"}` {
		t.Fatalf("unexpected index content: %s", data)
	}
}

func TestReadIndexMissing(t *testing.T) {
	zipPath := makeZip(t, map[string]string{"term_bank_1.json": `[]`})
	if _, err := ReadIndex(zipPath); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}
