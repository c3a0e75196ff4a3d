package search

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/vault"
)

// resourcesDir is the upload storage area at the vault root; it holds
// binary assets and stays out of search, like it stays out of version
// control via the ignore rules.
const resourcesDir = "_resources"

// Scanner is the in-process Grepper used when ripgrep is unavailable:
// it walks the vault and compares lower-cased filenames and content.
type Scanner struct {
	vault *vault.Vault
}

// NewScanner creates the fallback Grepper for the given vault.
func NewScanner(v *vault.Vault) *Scanner {
	return &Scanner{vault: v}
}

// ContentMatches walks the vault and returns files whose content contains
// phrase, case-insensitively.
func (s *Scanner) ContentMatches(ctx context.Context, phrase string) ([]string, error) {
	needle := strings.ToLower(phrase)
	var out []string
	err := s.walk(ctx, func(rel, abs string) {
		data, err := os.ReadFile(abs)
		if err != nil {
			return
		}
		if strings.Contains(strings.ToLower(string(data)), needle) {
			out = append(out, rel)
		}
	})
	return out, err
}

// NameMatches walks the vault and returns files whose name contains
// phrase, case-insensitively.
func (s *Scanner) NameMatches(ctx context.Context, phrase string) ([]string, error) {
	needle := strings.ToLower(phrase)
	var out []string
	err := s.walk(ctx, func(rel, abs string) {
		if strings.Contains(strings.ToLower(filepath.Base(rel)), needle) {
			out = append(out, rel)
		}
	})
	return out, err
}

// Snippets scans each file line by line and collects lines containing any
// of the phrases, at most three per file.
func (s *Scanner) Snippets(ctx context.Context, phrases, files []string) (map[string][]Snippet, error) {
	needles := make([]string, len(phrases))
	for i, p := range phrases {
		needles[i] = strings.ToLower(p)
	}

	snippets := make(map[string][]Snippet)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs, err := s.vault.Resolve(rel)
		if err != nil {
			continue
		}
		f, err := os.Open(abs)
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lineNo := 0
		for sc.Scan() && len(snippets[rel]) < maxSnippets {
			lineNo++
			line := sc.Text()
			lower := strings.ToLower(line)
			for _, n := range needles {
				if strings.Contains(lower, n) {
					snippets[rel] = append(snippets[rel], Snippet{LineNumber: lineNo, Content: line})
					break
				}
			}
		}
		f.Close()
	}
	return snippets, nil
}

// walk visits every regular file in the vault. Hidden entries and the
// resources directory are skipped so the candidate set matches what the
// ripgrep path produces under its hidden-file and gitignore defaults.
func (s *Scanner) walk(ctx context.Context, visit func(rel, abs string)) error {
	root := s.vault.Root()
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == resourcesDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return nil
		}
		visit(filepath.ToSlash(rel), p)
		return nil
	})
}
