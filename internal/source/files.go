// Package source opens form documents: saved HTML pages inside the
// configured directory and live pages in a browser.
package source

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/mcp-form-filler/internal/dom/htmldoc"
)

const outputPerm = 0o644

// FileInfo describes a saved form page.
type FileInfo struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
}

// Files loads and stores HTML form snapshots.
type Files struct {
	validator   *PathValidator
	maxFileSize int64
}

// NewFiles creates a file source rooted at dir.
func NewFiles(dir string, maxFileSize int64) (*Files, error) {
	v, err := NewPathValidator(dir)
	if err != nil {
		return nil, err
	}
	return &Files{validator: v, maxFileSize: maxFileSize}, nil
}

// Dir returns the form directory.
func (f *Files) Dir() string {
	return f.validator.Root()
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Load parses the HTML page at path. It returns the document and the
// resolved absolute path.
func (f *Files) Load(path string) (*htmldoc.Document, string, error) {
	abs, err := f.validator.Resolve(path)
	if err != nil {
		return nil, "", err
	}
	if !isHTML(abs) {
		return nil, "", fmt.Errorf("file must be an .html or .htm page: %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("path is a directory: %s", path)
	}
	if info.Size() > f.maxFileSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), f.maxFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", abs, err)
	}
	doc, err := htmldoc.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", abs, err)
	}
	return doc, abs, nil
}

// Save renders doc to path inside the directory, creating parents as needed.
func (f *Files) Save(doc *htmldoc.Document, path string) (string, error) {
	abs, err := f.validator.Resolve(path)
	if err != nil {
		return "", err
	}
	if !isHTML(abs) {
		return "", fmt.Errorf("output must be an .html or .htm file: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), outputPerm); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	return abs, nil
}

// DefaultOutputPath derives "<name>.filled.html" next to input.
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".filled" + ext
}

// List returns the HTML pages under the directory, sorted by path.
func (f *Files) List() ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(f.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable entries
			return nil
		}
		if d.IsDir() || !isHTML(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list form pages: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
