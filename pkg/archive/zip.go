// Package archive unpacks dictionary zip containers into the extraction
// cache and exposes the in-zip index document without extracting.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IndexFileName is the naming convention for the metadata document inside a
// dictionary archive. Matching is by substring: "jmdict_index.json" counts.
const IndexFileName = "index.json"

// ErrIndexNotFound indicates the archive contains no metadata document.
var ErrIndexNotFound = errors.New("no index file in archive")

// Extractor unpacks archives into uniquely-named subdirectories of a cache
// directory. Extracted contents are throwaway: ClearCache removes everything.
type Extractor struct {
	CacheDir string
}

func NewExtractor(cacheDir string) *Extractor {
	return &Extractor{CacheDir: cacheDir}
}

// ExtractToCache unpacks the archive into a fresh subdirectory named after
// the archive plus a random suffix, so concurrent extractions of the same
// file never collide. Returns the directory path.
func (e *Extractor) ExtractToCache(zipPath string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	dest := filepath.Join(e.CacheDir, filepath.Base(zipPath)+"-"+uuid.NewString())
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Archives are single-level containers; flatten any path and refuse
		// names that would escape the destination.
		name := filepath.Base(filepath.Clean(f.Name))
		if name == "." || name == ".." || name == string(filepath.Separator) {
			continue
		}
		if err := extractFile(f, filepath.Join(dest, name)); err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return dest, nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	return out.Close()
}

// ClearCache removes every entry in the cache directory. A missing cache
// directory is not an error.
func (e *Extractor) ClearCache() (int, error) {
	entries, err := os.ReadDir(e.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(e.CacheDir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ReadIndex returns the bytes of the archive's index document without
// extracting anything to disk. Returns ErrIndexNotFound when the archive has
// no file matching the index naming convention.
func ReadIndex(zipPath string) ([]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.Contains(filepath.Base(f.Name), IndexFileName) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, ErrIndexNotFound
}

// IsIndexFile reports whether an extracted file name matches the index
// document naming convention.
func IsIndexFile(name string) bool {
	return strings.Contains(filepath.Base(name), IndexFileName)
}
