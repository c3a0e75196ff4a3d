// Package vault implements the note vault: path validation against the
// vault root, text/binary classification, and file/directory operations.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
)

// Vault is rooted at an existing directory. All user-supplied paths are
// resolved against the root and must stay inside it.
type Vault struct {
	root string // absolute, symlink-resolved vault directory
}

// New creates a Vault rooted at the given directory.
// The directory must already exist.
func New(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", resolved)
	}
	return &Vault{root: resolved}, nil
}

// Root returns the absolute vault root directory.
func (v *Vault) Root() string {
	return v.root
}

// Resolve validates a user-supplied vault-relative path and returns its
// absolute form. The target does not have to exist.
//
// Two independent checks are required: the explicit ".." rejection catches
// traversal attempts, and the containment check catches everything the
// first one cannot (absolute overrides, symlink escapes). Backslashes are
// rejected outright so Windows-style separators cannot smuggle segments
// past the split.
func (v *Vault) Resolve(raw string) (string, error) {
	if strings.Contains(raw, "\\") {
		return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
		}
	}

	// Exactly one leading slash is tolerated as the rooted form; a
	// remainder that is still absolute (e.g. "//etc/passwd") is an escape
	// attempt, not a vault path.
	rel := strings.TrimPrefix(raw, "/")
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
	}
	abs, err := filepath.Abs(filepath.Join(v.root, rel))
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
	}
	if !v.contains(abs) {
		return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
	}

	// If the target (or a symlinked parent) exists, re-check containment
	// on the symlink-resolved form.
	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		if !v.contains(resolved) {
			return "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, raw)
		}
	}

	return abs, nil
}

// contains reports whether abs is the root itself or a descendant of it.
func (v *Vault) contains(abs string) bool {
	return abs == v.root || strings.HasPrefix(abs, v.root+string(os.PathSeparator))
}

// Rooted renders a vault-relative path with exactly one leading slash,
// the form every API response uses.
func (v *Vault) Rooted(rel string) string {
	return "/" + strings.TrimPrefix(filepath.ToSlash(rel), "/")
}

// rel converts an absolute path under the root back to its vault-relative
// form.
func (v *Vault) rel(abs string) string {
	r, err := filepath.Rel(v.root, abs)
	if err != nil || r == "." {
		return ""
	}
	return filepath.ToSlash(r)
}

// IsMarkdown reports whether path carries a markdown suffix.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
