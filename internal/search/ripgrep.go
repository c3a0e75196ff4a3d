package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/starford/othala/internal/apperr"
)

// callTimeout bounds every ripgrep invocation.
const callTimeout = 5 * time.Second

// Ripgrep is the primary Grepper: it shells out to rg for content lookup,
// filename globbing, and snippet extraction. Availability is probed once
// and cached.
type Ripgrep struct {
	root string

	probe sync.Once
	avail bool
}

// NewRipgrep creates a ripgrep-backed Grepper rooted at the vault dir.
func NewRipgrep(root string) *Ripgrep {
	return &Ripgrep{root: root}
}

func (r *Ripgrep) available() bool {
	r.probe.Do(func() {
		_, err := exec.LookPath("rg")
		r.avail = err == nil
	})
	return r.avail
}

// ContentMatches lists files whose content contains phrase
// (case-insensitive fixed-string match, filenames only).
func (r *Ripgrep) ContentMatches(ctx context.Context, phrase string) ([]string, error) {
	out, err := r.exec(ctx, "--files-with-matches", "--ignore-case", "--fixed-strings", "--", phrase)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// NameMatches lists files whose name contains phrase, via a
// case-insensitive glob over the file listing.
func (r *Ripgrep) NameMatches(ctx context.Context, phrase string) ([]string, error) {
	out, err := r.exec(ctx, "--files", "--iglob", "*"+globEscape(phrase)+"*")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// Snippets runs one combined search with the phrases OR'd, line-numbered,
// capped at three matches per file.
func (r *Ripgrep) Snippets(ctx context.Context, phrases, files []string) (map[string][]Snippet, error) {
	if len(files) == 0 {
		return map[string][]Snippet{}, nil
	}
	args := []string{
		"--line-number", "--ignore-case", "--fixed-strings",
		"--no-heading", "--max-count", strconv.Itoa(maxSnippets),
	}
	for _, p := range phrases {
		args = append(args, "-e", p)
	}
	args = append(args, "--")
	args = append(args, files...)

	out, err := r.exec(ctx, args...)
	if err != nil {
		return nil, err
	}

	snippets := make(map[string][]Snippet)
	for _, line := range splitLines(out) {
		file, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		numStr, content, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		num, convErr := strconv.Atoi(numStr)
		if convErr != nil || num < 1 {
			continue
		}
		file = strings.TrimPrefix(file, "./")
		if len(snippets[file]) < maxSnippets {
			snippets[file] = append(snippets[file], Snippet{LineNumber: num, Content: content})
		}
	}
	return snippets, nil
}

// exec runs rg in the vault root with the call timeout. A missing binary
// maps to ErrToolUnavailable and a deadline hit to ErrTimeout, both of
// which trigger the engine's fallback; any other tool failure degrades to
// zero matches.
func (r *Ripgrep) exec(ctx context.Context, args ...string) ([]byte, error) {
	if !r.available() {
		return nil, fmt.Errorf("search: rg not found: %w", apperr.ErrToolUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rg", args...)
	cmd.Dir = r.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("search: rg timed out: %w", apperr.ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit 1 means no matches; anything else is a tool failure
			// treated as zero matches to keep search best-effort.
			return nil, nil
		}
		return nil, fmt.Errorf("search: rg failed: %w", apperr.ErrToolUnavailable)
	}
	return stdout.Bytes(), nil
}

func splitLines(out []byte) []string {
	if len(out) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(out), "\n"), "\n")
}

var globEscaper = strings.NewReplacer(
	"*", "[*]", "?", "[?]", "[", "[[]", "]", "[]]", "{", "[{]", "}", "[}]", "!", "[!]",
)

// globEscape neutralizes glob metacharacters so a phrase is matched
// literally inside the filename glob.
func globEscape(phrase string) string {
	return globEscaper.Replace(phrase)
}
