package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the form directory.
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator confines file access to the configured form directory.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the configured directory.
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path, with relative paths taken from
// the root, after checking that it stays inside the root. Null bytes are dropped.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	if !v.within(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	// A symlink inside the root must not point outside it.
	real, err := resolveExisting(abs)
	if err != nil || !v.within(real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return abs, nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of path.
// Components that do not exist yet are appended unchanged. A dangling
// symlink is an error.
func resolveExisting(path string) (string, error) {
	var missing []string
	for {
		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real, nil
		}
		if _, lerr := os.Lstat(path); lerr == nil {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		missing = append(missing, filepath.Base(path))
		path = parent
	}
}

func (v *PathValidator) within(path string) bool {
	roots := []string{v.root}
	if real, err := filepath.EvalSymlinks(v.root); err == nil && real != v.root {
		roots = append(roots, real)
	}
	for _, root := range roots {
		if path == root {
			return true
		}
		withSep := root
		if !strings.HasSuffix(withSep, string(filepath.Separator)) {
			withSep += string(filepath.Separator)
		}
		if strings.HasPrefix(path, withSep) {
			return true
		}
	}
	return false
}
