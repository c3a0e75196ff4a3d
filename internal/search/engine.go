// Package search implements multi-phrase, case-insensitive vault search.
//
// Candidate lookup and snippet extraction are delegated to a Grepper; the
// primary implementation shells out to ripgrep, with a pure in-process
// scanner used when the tool is missing or times out.
package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/vault"
)

const (
	// DefaultLimit is applied when the caller does not specify one.
	DefaultLimit = 50
	// MaxLimit caps the number of results per query.
	MaxLimit = 100
	// maxSnippets is the per-file cap on matched lines.
	maxSnippets = 3
)

// Snippet is a single matched line with its 1-based line number.
type Snippet struct {
	LineNumber int    `json:"line_number"`
	Content    string `json:"content"`
}

// Result is one matching file.
type Result struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Snippets []Snippet `json:"snippets"`
	Modified int64     `json:"modified"`
}

// Response wraps search results. Total is the count actually returned,
// after the limit is applied.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// Grepper locates files by content phrase or filename phrase and extracts
// matched lines. Paths are vault-relative with forward slashes.
type Grepper interface {
	// ContentMatches returns the files whose content contains phrase,
	// case-insensitively.
	ContentMatches(ctx context.Context, phrase string) ([]string, error)
	// NameMatches returns the files whose name contains phrase,
	// case-insensitively.
	NameMatches(ctx context.Context, phrase string) ([]string, error)
	// Snippets returns up to maxSnippets matched lines per file for the
	// given phrases (OR semantics), keyed by file path.
	Snippets(ctx context.Context, phrases, files []string) (map[string][]Snippet, error)
}

// Engine runs the phrase-intersection search over a Grepper pair.
type Engine struct {
	vault    *vault.Vault
	tool     Grepper
	fallback Grepper
}

// NewEngine creates a search engine for the given vault, preferring
// ripgrep and falling back to the in-process scanner.
func NewEngine(v *vault.Vault) *Engine {
	return &Engine{
		vault:    v,
		tool:     NewRipgrep(v.Root()),
		fallback: NewScanner(v),
	}
}

// NewEngineWith creates an engine with explicit Grepper implementations.
func NewEngineWith(v *vault.Vault, tool, fallback Grepper) *Engine {
	return &Engine{vault: v, tool: tool, fallback: fallback}
}

// Search splits query on whitespace and returns the files matching every
// phrase in content or filename. Results are sorted by modification time,
// most recent first, and truncated to limit.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*Response, error) {
	phrases := strings.Fields(query)
	if len(phrases) == 0 {
		return &Response{Results: []Result{}}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	resp, err := e.run(ctx, e.tool, phrases, limit)
	if degraded(err) {
		slog.Warn("search: tool unavailable, using in-process scan", slog.String("error", err.Error()))
		return e.run(ctx, e.fallback, phrases, limit)
	}
	return resp, err
}

// degraded reports whether the grep tool failed in a way that warrants
// the in-process fallback rather than an error to the caller.
func degraded(err error) bool {
	return errors.Is(err, apperr.ErrToolUnavailable) || errors.Is(err, apperr.ErrTimeout)
}

func (e *Engine) run(ctx context.Context, g Grepper, phrases []string, limit int) (*Response, error) {
	// AND semantics: intersect the per-phrase candidate sets, bailing out
	// as soon as the running intersection is empty.
	var candidates map[string]struct{}
	for _, phrase := range phrases {
		matched, err := e.phraseMatches(ctx, g, phrase)
		if err != nil {
			return nil, err
		}
		if candidates == nil {
			candidates = matched
		} else {
			for p := range candidates {
				if _, ok := matched[p]; !ok {
					delete(candidates, p)
				}
			}
		}
		if len(candidates) == 0 {
			return &Response{Results: []Result{}}, nil
		}
	}

	files := make([]string, 0, len(candidates))
	for p := range candidates {
		files = append(files, p)
	}
	sort.Strings(files)

	snippets, err := g.Snippets(ctx, phrases, files)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(files))
	for _, rel := range files {
		sn := snippets[rel]
		if sn == nil {
			sn = []Snippet{} // filename-only match
		}
		r := Result{
			Path:     e.vault.Rooted(rel),
			Name:     path.Base(rel),
			Snippets: sn,
		}
		if info, statErr := os.Stat(e.vault.Root() + string(os.PathSeparator) + rel); statErr == nil {
			r.Modified = info.ModTime().Unix()
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Modified > results[j].Modified
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return &Response{Results: results, Total: len(results)}, nil
}

// phraseMatches unions content and filename matches for one phrase,
// dropping version-control metadata and binary files.
func (e *Engine) phraseMatches(ctx context.Context, g Grepper, phrase string) (map[string]struct{}, error) {
	byContent, err := g.ContentMatches(ctx, phrase)
	if err != nil {
		return nil, err
	}
	byName, err := g.NameMatches(ctx, phrase)
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(byContent)+len(byName))
	for _, lst := range [][]string{byContent, byName} {
		for _, rel := range lst {
			rel = strings.TrimPrefix(rel, "./")
			if rel == "" || isVCSPath(rel) {
				continue
			}
			if _, ok := out[rel]; ok {
				continue
			}
			abs, rerr := e.vault.Resolve(rel)
			if rerr != nil || vault.IsBinary(abs) {
				continue
			}
			out[rel] = struct{}{}
		}
	}
	return out, nil
}

func isVCSPath(rel string) bool {
	return rel == ".git" || strings.HasPrefix(rel, ".git/")
}
