package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/starford/othala/internal/apperr"
)

// NoteRecord is the full representation of a note, derived from the
// filesystem on every read.
type NoteRecord struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// Read returns the content and metadata of a markdown note.
func (v *Vault) Read(path string) (*NoteRecord, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotAFile, path)
	}
	if !IsMarkdown(abs) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrWrongExtension, path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBinary, path)
	}
	return &NoteRecord{
		Content:  string(data),
		Path:     v.Rooted(path),
		Size:     info.Size(),
		Modified: info.ModTime().Unix(),
	}, nil
}

// Create writes a new note. A non-markdown target path is rewritten to
// carry a .md extension before writing. Parent directories are created as
// needed.
func (v *Vault) Create(path, content string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(abs); err == nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, path)
	}
	if !IsMarkdown(abs) {
		abs += ".md"
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("vault: create %s: %w", path, err)
	}
	return v.Rooted(v.rel(abs)), nil
}

// Update overwrites the content of an existing note.
func (v *Vault) Update(path, content string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotAFile, path)
	}
	if IsBinary(abs) {
		return "", fmt.Errorf("%w: %s", apperr.ErrBinary, path)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("vault: update %s: %w", path, err)
	}
	return v.Rooted(path), nil
}

// Delete unlinks a note.
func (v *Vault) Delete(path string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", apperr.ErrNotAFile, path)
	}
	if err := os.Remove(abs); err != nil {
		return "", fmt.Errorf("vault: delete %s: %w", path, err)
	}
	return v.Rooted(path), nil
}

// Rename moves a note to a new location. The destination keeps the
// markdown-extension guarantee and its parents are created as needed.
func (v *Vault) Rename(src, dst string) (string, error) {
	absSrc, absDst, err := v.resolveFilePair(src, dst)
	if err != nil {
		return "", err
	}
	if !IsMarkdown(absDst) {
		absDst += ".md"
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir for rename: %w", err)
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return "", fmt.Errorf("vault: rename %s: %w", src, err)
	}
	return v.Rooted(v.rel(absDst)), nil
}

// Copy duplicates a note, preserving the source and its modification time.
func (v *Vault) Copy(src, dst string) (string, error) {
	absSrc, absDst, err := v.resolveFilePair(src, dst)
	if err != nil {
		return "", err
	}
	if !IsMarkdown(absDst) {
		absDst += ".md"
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return "", fmt.Errorf("vault: mkdir for copy: %w", err)
	}
	if err := copyFile(absSrc, absDst); err != nil {
		return "", fmt.Errorf("vault: copy %s: %w", src, err)
	}
	return v.Rooted(v.rel(absDst)), nil
}

// resolveFilePair validates a src/dst pair for move and copy: src must be
// an existing regular file, dst must be free.
func (v *Vault) resolveFilePair(src, dst string) (absSrc, absDst string, err error) {
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
	if !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrNotAFile, src)
	}
	if _, err := os.Lstat(absDst); err == nil {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, dst)
	}
	return absSrc, absDst, nil
}

// copyFile copies src to dst and carries the source timestamps over.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
