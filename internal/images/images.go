// Package images stores uploaded image attachments under the vault's
// _resources directory. Stored names are random, so uploads never
// collide and never echo untrusted filenames back into the filesystem.
package images

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/vault"
)

const (
	// MaxUploadSize caps one upload at 10 MiB.
	MaxUploadSize = 10 << 20

	// ResourcesDir is the directory under the vault root that holds
	// uploads. It is ignored by version control.
	ResourcesDir = "_resources"
)

var (
	// ErrUnsupportedType is returned for a content type or extension
	// outside the image allow-list.
	ErrUnsupportedType = errors.New("images: unsupported file type")
	// ErrTooLarge is returned when the upload exceeds MaxUploadSize.
	ErrTooLarge = errors.New("images: file too large")
)

var allowedMIME = map[string]struct{}{
	"image/jpeg":    {},
	"image/jpg":     {},
	"image/png":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
}

var allowedExt = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// Upload describes a stored image.
type Upload struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Service writes uploads into the vault's resources directory.
type Service struct {
	vault *vault.Vault
}

// NewService creates an image service over the vault.
func NewService(v *vault.Vault) *Service {
	return &Service{vault: v}
}

// Save validates and stores one upload, returning its public path under
// /_resources. The original filename contributes only its extension.
func (s *Service) Save(filename, contentType string, r io.Reader) (Upload, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if base, _, found := strings.Cut(mimeType, ";"); found {
		mimeType = strings.TrimSpace(base)
	}
	if _, ok := allowedMIME[mimeType]; !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExt[ext]; !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	dir := filepath.Join(s.vault.Root(), ResourcesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Upload{}, fmt.Errorf("images: create resources dir: %w", err)
	}

	name := uuid.NewString() + ext
	target := filepath.Join(dir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Upload{}, fmt.Errorf("images: create file: %w", err)
	}

	// One extra byte past the cap distinguishes "exactly at the limit"
	// from "over it".
	written, err := io.Copy(f, io.LimitReader(r, MaxUploadSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return Upload{}, fmt.Errorf("images: write file: %w", err)
	}
	if written > MaxUploadSize {
		os.Remove(target)
		return Upload{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, MaxUploadSize)
	}

	return Upload{
		Path: "/" + ResourcesDir + "/" + name,
		Name: name,
		Size: written,
	}, nil
}
