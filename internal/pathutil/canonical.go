package pathutil

import (
	"path/filepath"
	"strings"
)

// Canonical returns a cleaned, symlink-resolved path when possible.
// Best-effort: if the path does not exist the cleaned form is returned,
// so callers can still compare paths that were never created.
func Canonical(path string) string {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "" || clean == "." {
		return clean
	}
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return filepath.Clean(resolved)
	}
	return clean
}
