package gitvcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ignoreContent is the fixed .gitignore written to the vault root: common
// binary extensions, the uploaded-resources directory, and the git
// metadata directory itself.
const ignoreContent = `# Binary files (common extensions)
*.png
*.jpg
*.jpeg
*.gif
*.bmp
*.ico
*.svg
*.webp
*.pdf
*.zip
*.tar
*.gz
*.exe
*.dll
*.so
*.dylib

# Resources directory
_resources/

# Git directory
.git/
`

// EnsureIgnore writes the fixed ignore rules to the vault root. When the
// existing file already matches, nothing is written, so repeated calls
// never produce metadata-only commits.
func (s *Service) EnsureIgnore(_ context.Context) error {
	target := filepath.Join(s.vault.Root(), ".gitignore")

	if existing, err := os.ReadFile(target); err == nil {
		if strings.TrimSpace(string(existing)) == strings.TrimSpace(ignoreContent) {
			return nil
		}
	}
	if err := os.WriteFile(target, []byte(ignoreContent), 0o644); err != nil {
		s.status.Fail(fmt.Sprintf("write .gitignore: %v", err))
		return fmt.Errorf("gitvcs: write .gitignore: %w", err)
	}
	return nil
}
