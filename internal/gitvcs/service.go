// Package gitvcs wraps the external git tool to auto-commit vault
// changes, fetch per-file history, read content at historical revisions,
// and support restores. Absence of the tool degrades every operation to
// ErrToolUnavailable instead of failing the host process.
package gitvcs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/vault"
)

const (
	probeTimeout  = 5 * time.Second
	queryTimeout  = 10 * time.Second
	commitTimeout = 30 * time.Second

	commitName  = "Othala"
	commitEmail = "othala@localhost"
)

// CommitRecord is one entry of a file's history, newest first.
type CommitRecord struct {
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	IsCurrent bool   `json:"is_current"`
}

// Service drives git for one vault. Availability is probed once and
// cached; initialization is lazy and idempotent.
type Service struct {
	vault  *vault.Vault
	run    Runner
	status *StatusRecord

	mu          sync.Mutex
	avail       *bool
	initialized bool
}

// NewService creates a git service over the vault using the subprocess
// runner.
func NewService(v *vault.Vault, status *StatusRecord) *Service {
	return NewServiceWith(v, status, NewRunner(v.Root()))
}

// NewServiceWith creates a git service with an explicit Runner.
func NewServiceWith(v *vault.Vault, status *StatusRecord, run Runner) *Service {
	return &Service{vault: v, run: run, status: status}
}

// available probes for the git binary once and caches the verdict.
func (s *Service) available(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.avail != nil {
		return *s.avail
	}
	res, err := s.run.Run(ctx, probeTimeout, "--version")
	ok := err == nil && res.Code == 0
	s.avail = &ok
	return ok
}

// Init makes the vault a git repository if it is not one already and
// writes the ignore rules. Safe to call repeatedly.
func (s *Service) Init(ctx context.Context) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	return s.EnsureIgnore(ctx)
}

func (s *Service) ensureInitialized(ctx context.Context) error {
	if !s.available(ctx) {
		s.status.Fail("git is not available on this system")
		return fmt.Errorf("gitvcs: %w", apperr.ErrToolUnavailable)
	}

	s.mu.Lock()
	done := s.initialized
	s.mu.Unlock()
	if done {
		return nil
	}

	s.configureIdentity(ctx)

	if info, err := os.Stat(filepath.Join(s.vault.Root(), ".git")); err != nil || !info.IsDir() {
		res, err := s.run.Run(ctx, queryTimeout, "init")
		if err != nil {
			s.status.Fail(fmt.Sprintf("git init: %v", err))
			return err
		}
		if res.Code != 0 {
			s.status.Fail("git init failed: " + strings.TrimSpace(res.Stderr))
			return fmt.Errorf("gitvcs: init failed: %w", apperr.ErrToolUnavailable)
		}
		slog.Info("gitvcs: initialized repository", slog.String("root", s.vault.Root()))
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// configureIdentity sets up safe.directory and a commit identity. Every
// step tolerates "already configured"; failures here are logged, not
// fatal, because commits may still work with an inherited config.
func (s *Service) configureIdentity(ctx context.Context) {
	if res, err := s.run.Run(ctx, probeTimeout,
		"config", "--global", "--add", "safe.directory", s.vault.Root()); err != nil || res.Code != 0 {
		if res.Code != 0 && !strings.Contains(strings.ToLower(res.Stderr), "already exists") {
			slog.Warn("gitvcs: safe.directory config failed", slog.String("stderr", strings.TrimSpace(res.Stderr)))
		}
	}

	for key, value := range map[string]string{"user.name": commitName, "user.email": commitEmail} {
		res, err := s.run.Run(ctx, probeTimeout, "config", "--global", key)
		if err == nil && res.Code == 0 && strings.TrimSpace(res.Stdout) != "" {
			continue // already configured
		}
		if _, err := s.run.Run(ctx, probeTimeout, "config", "--global", key, value); err != nil {
			slog.Warn("gitvcs: identity config failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// CommitAll stages every non-binary, non-ignored file and commits with a
// fixed message. A clean tree is a successful no-op.
func (s *Service) CommitAll(ctx context.Context) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	if err := s.EnsureIgnore(ctx); err != nil {
		return err
	}

	res, err := s.run.Run(ctx, queryTimeout, "status", "--porcelain")
	if err != nil {
		s.status.Fail(fmt.Sprintf("git status: %v", err))
		return err
	}
	if res.Code != 0 {
		s.status.Fail("git status failed: " + strings.TrimSpace(res.Stderr))
		return fmt.Errorf("gitvcs: status failed")
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil
	}

	// The per-file binary check decides whether staging happens at all;
	// the actual exclusion of binaries is done by the ignore rules, so a
	// plain "add ." keeps deletions staged too.
	if len(s.textFiles()) > 0 {
		res, err = s.run.Run(ctx, commitTimeout, "add", ".")
		if err != nil {
			s.status.Fail(fmt.Sprintf("git add: %v", err))
			return err
		}
		if res.Code != 0 {
			s.status.Fail("git add failed: " + strings.TrimSpace(res.Stderr))
			return fmt.Errorf("gitvcs: add failed")
		}
	}

	return s.commitStaged(ctx, "Auto-commit", nil)
}

// CommitFile stages and commits a single file. Unchanged files are a
// successful no-op; binary or missing files fail.
func (s *Service) CommitFile(ctx context.Context, path string) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	if err := s.EnsureIgnore(ctx); err != nil {
		return err
	}

	abs, gitPath, err := s.resolveFile(path)
	if err != nil {
		s.status.Fail(err.Error())
		return err
	}
	if vault.IsBinary(abs) {
		err := fmt.Errorf("%w: %s", apperr.ErrBinary, path)
		s.status.Fail(err.Error())
		return err
	}

	res, err := s.run.Run(ctx, queryTimeout, "status", "--porcelain", "--", gitPath)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git status: %v", err))
		return err
	}
	if res.Code != 0 {
		s.status.Fail("git status failed: " + strings.TrimSpace(res.Stderr))
		return fmt.Errorf("gitvcs: status failed")
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil
	}

	res, err = s.run.Run(ctx, commitTimeout, "add", "--", gitPath)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git add: %v", err))
		return err
	}
	if res.Code != 0 {
		s.status.Fail("git add failed: " + strings.TrimSpace(res.Stderr))
		return fmt.Errorf("gitvcs: add failed")
	}

	return s.commitStaged(ctx, "Auto-commit: "+filepath.Base(gitPath), []string{gitPath})
}

// commitStaged commits when the staged diff is non-empty; pathspec
// narrows the diff check for single-file commits.
func (s *Service) commitStaged(ctx context.Context, message string, pathspec []string) error {
	diffArgs := []string{"diff", "--cached", "--quiet"}
	if len(pathspec) > 0 {
		diffArgs = append(diffArgs, "--")
		diffArgs = append(diffArgs, pathspec...)
	}
	res, err := s.run.Run(ctx, queryTimeout, diffArgs...)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git diff: %v", err))
		return err
	}
	if res.Code == 0 {
		return nil // nothing staged
	}

	res, err = s.run.Run(ctx, commitTimeout, "commit", "-m", message)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git commit: %v", err))
		return err
	}
	if res.Code != 0 {
		s.status.Fail("git commit failed: " + strings.TrimSpace(res.Stderr))
		return fmt.Errorf("gitvcs: commit failed")
	}
	s.status.Committed()
	slog.Info("gitvcs: committed", slog.String("message", message))
	return nil
}

// History returns the commit history of a file, following renames. An
// untracked file yields an empty list, not an error.
func (s *Service) History(ctx context.Context, path string) ([]CommitRecord, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	_, gitPath, err := s.resolveFile(path)
	if err != nil {
		return nil, err
	}

	res, err := s.run.Run(ctx, commitTimeout, "log", "--follow", "--format=%H|%ct|%s", "--", gitPath)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git log: %v", err))
		return nil, err
	}
	if res.Code != 0 {
		// Only the "nothing committed yet" answers mean empty history;
		// anything else (not a repository, corruption) is a real failure.
		stderr := strings.ToLower(res.Stderr)
		if strings.Contains(stderr, "does not exist") ||
			strings.Contains(stderr, "no such path") ||
			strings.Contains(stderr, "exists on disk, but not in") ||
			strings.Contains(stderr, "does not have any commits") {
			return []CommitRecord{}, nil
		}
		s.status.Fail("git log failed: " + strings.TrimSpace(res.Stderr))
		return nil, fmt.Errorf("gitvcs: log failed")
	}

	current, _ := s.CurrentCommitFor(ctx, path)

	records := []CommitRecord{}
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}
		var ts int64
		if _, convErr := fmt.Sscanf(parts[1], "%d", &ts); convErr != nil {
			continue
		}
		rec := CommitRecord{Hash: parts[0], Timestamp: ts, IsCurrent: parts[0] == current}
		if len(parts) > 2 {
			rec.Message = parts[2]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ContentAt returns the file's content at the given revision.
func (s *Service) ContentAt(ctx context.Context, path, hash string) (string, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return "", err
	}
	_, gitPath, err := s.resolvePath(path)
	if err != nil {
		return "", err
	}

	res, err := s.run.Run(ctx, commitTimeout, "show", hash+":"+gitPath)
	if err != nil {
		s.status.Fail(fmt.Sprintf("git show: %v", err))
		return "", err
	}
	if res.Code != 0 {
		stderr := strings.ToLower(res.Stderr)
		if strings.Contains(stderr, "does not exist") ||
			strings.Contains(stderr, "not found") ||
			strings.Contains(stderr, "invalid object name") ||
			strings.Contains(stderr, "exists on disk, but not in") {
			return "", fmt.Errorf("%w: %s@%s", apperr.ErrNotFoundInCommit, path, shortHash(hash))
		}
		s.status.Fail("git show failed: " + strings.TrimSpace(res.Stderr))
		return "", fmt.Errorf("gitvcs: show failed")
	}
	return res.Stdout, nil
}

// CurrentCommitFor returns the hash of the commit matching the working
// tree content of the file, or "" when the file is dirty or untracked.
// Failures are swallowed; the answer is advisory.
func (s *Service) CurrentCommitFor(ctx context.Context, path string) (string, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return "", nil
	}
	_, gitPath, err := s.resolveFile(path)
	if err != nil {
		return "", nil
	}

	res, err := s.run.Run(ctx, queryTimeout, "status", "--porcelain", "--", gitPath)
	if err != nil || res.Code != 0 || strings.TrimSpace(res.Stdout) != "" {
		return "", nil
	}
	res, err = s.run.Run(ctx, queryTimeout, "log", "-1", "--format=%H", "--", gitPath)
	if err != nil || res.Code != 0 {
		return "", nil
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Status reports the service state for the health endpoint.
func (s *Service) Status(ctx context.Context) Status {
	avail := s.available(ctx)

	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		if info, err := os.Stat(filepath.Join(s.vault.Root(), ".git")); err == nil && info.IsDir() {
			initialized = true
		}
	}
	return s.status.snapshot(avail && initialized)
}

// resolveFile validates the path and requires an existing regular file.
func (s *Service) resolveFile(path string) (abs, gitPath string, err error) {
	abs, gitPath, err = s.resolvePath(path)
	if err != nil {
		return "", "", err
	}
	info, statErr := os.Stat(abs)
	if statErr != nil {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrNotAFile, path)
	}
	return abs, gitPath, nil
}

// resolvePath validates the path without requiring existence; gitPath is
// the forward-slash relative form git expects.
func (s *Service) resolvePath(path string) (abs, gitPath string, err error) {
	abs, err = s.vault.Resolve(path)
	if err != nil {
		return "", "", err
	}
	rel, relErr := filepath.Rel(s.vault.Root(), abs)
	if relErr != nil {
		return "", "", fmt.Errorf("%w: %s", apperr.ErrInvalidPath, path)
	}
	return abs, filepath.ToSlash(rel), nil
}

// textFiles walks the vault and lists non-binary regular files outside
// the metadata directory.
func (s *Service) textFiles() []string {
	var out []string
	root := s.vault.Root()
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" || !d.Type().IsRegular() {
			return nil
		}
		if vault.IsBinary(p) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
