package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/apperr"
)

// DirEntryInfo is a shallow listing entry returned by GetDir.
type DirEntryInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"` // "file" or "directory"
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// DirRecord is the response payload for a directory lookup.
type DirRecord struct {
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Type      string         `json:"type"`
	Size      int64          `json:"size"`
	Modified  int64          `json:"modified"`
	ItemCount int            `json:"item_count"`
	Contents  []DirEntryInfo `json:"contents"`
}

// CreateDir creates a new directory, parents included.
func (v *Vault) CreateDir(path string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(abs); err == nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, path)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir %s: %w", path, err)
	}
	return v.Rooted(path), nil
}

// GetDir returns metadata and the shallow (one level) contents of a
// directory. Hidden entries are excluded.
func (v *Vault) GetDir(path string) (*DirRecord, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotADirectory, path)
	}

	entries, err := os.ReadDir(abs)
	if err != nil && !os.IsPermission(err) {
		return nil, fmt.Errorf("vault: list %s: %w", path, err)
	}
	sortEntriesDirsFirst(entries)

	contents := []DirEntryInfo{}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		item := DirEntryInfo{
			Name: e.Name(),
			Path: v.Rooted(v.rel(filepath.Join(abs, e.Name()))),
			Type: "file",
		}
		if e.IsDir() {
			item.Type = "directory"
		}
		if ei, err := e.Info(); err == nil {
			if !e.IsDir() {
				item.Size = ei.Size()
			}
			item.Modified = ei.ModTime().Unix()
		}
		contents = append(contents, item)
	}

	return &DirRecord{
		Name:      filepath.Base(abs),
		Path:      v.Rooted(path),
		Type:      "directory",
		Size:      info.Size(),
		Modified:  info.ModTime().Unix(),
		ItemCount: len(contents),
		Contents:  contents,
	}, nil
}

// RenameDir moves a directory. Moving a directory into its own descendant
// fails with ErrCircular.
func (v *Vault) RenameDir(src, dst string) (string, error) {
	absSrc, absDst, err := v.resolveDirPair(src, dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir for rename: %w", err)
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return "", fmt.Errorf("vault: rename %s: %w", src, err)
	}
	return v.Rooted(dst), nil
}

// CopyDir recursively copies a directory, with the same circular-operation
// guard as RenameDir.
func (v *Vault) CopyDir(src, dst string) (string, error) {
	absSrc, absDst, err := v.resolveDirPair(src, dst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir for copy: %w", err)
	}
	if err := copyTree(absSrc, absDst); err != nil {
		return "", fmt.Errorf("vault: copy %s: %w", src, err)
	}
	return v.Rooted(dst), nil
}

// DeleteDir removes a directory. A non-empty directory requires
// recursive=true; otherwise ErrNotEmpty.
func (v *Vault) DeleteDir(path string, recursive bool) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotADirectory, path)
	}
	if !recursive {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return "", fmt.Errorf("vault: list %s: %w", path, err)
		}
		if len(entries) > 0 {
			return "", fmt.Errorf("%w: %s", apperr.ErrNotEmpty, path)
		}
		if err := os.Remove(abs); err != nil {
			return "", fmt.Errorf("vault: delete %s: %w", path, err)
		}
		return v.Rooted(path), nil
	}
	if err := os.RemoveAll(abs); err != nil {
		return "", fmt.Errorf("vault: delete %s: %w", path, err)
	}
	return v.Rooted(path), nil
}

// resolveDirPair validates a src/dst pair for directory move and copy.
func (v *Vault) resolveDirPair(src, dst string) (absSrc, absDst string, err error) {
	absSrc, err = v.Resolve(src)
	if err != nil {
		return "", "", err
	}
	absDst, err = v.Resolve(dst)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(absSrc)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrNotFound, src)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrNotADirectory, src)
	}
	if _, err := os.Lstat(absDst); err == nil {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, dst)
	}
	if absDst == absSrc || strings.HasPrefix(absDst, absSrc+string(os.PathSeparator)) {
		return "", "", fmt.Errorf("%w: %s -> %s", apperr.ErrCircular, src, dst)
	}
	return absSrc, absDst, nil
}

// copyTree recursively copies a directory tree. Symlinks are not followed.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&os.ModeSymlink != 0:
			return nil
		default:
			return copyFile(p, target)
		}
	})
}
