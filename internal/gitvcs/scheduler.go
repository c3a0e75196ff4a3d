package gitvcs

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Scheduler runs CommitAll periodically. An fsnotify watcher gates the
// commits: a tick with no filesystem activity since the last attempt is
// skipped. Commit failures are logged and retried on the next dirty
// tick; they never stop the loop.
type Scheduler struct {
	service  *Service
	root     string
	interval time.Duration
	delay    time.Duration

	mu    sync.Mutex
	dirty bool
}

// NewScheduler creates a scheduler committing every interval, with an
// initial delay before the first attempt.
func NewScheduler(service *Service, interval, delay time.Duration) *Scheduler {
	return &Scheduler{
		service:  service,
		root:     service.vault.Root(),
		interval: interval,
		delay:    delay,
		// Changes made before startup must reach the first commit.
		dirty: true,
	}
}

// Run watches the vault and commits until ctx is cancelled. When the
// watcher cannot be created the scheduler degrades to committing on
// every tick.
func (s *Scheduler) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("scheduler: watcher unavailable, committing every tick", slog.String("error", err.Error()))
	} else {
		defer w.Close()
		if addErr := s.addDirsRecursive(w, s.root); addErr != nil {
			slog.Warn("scheduler: watch setup failed", slog.String("error", addErr.Error()))
			w.Close()
			w = nil
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(s.delay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("scheduler: started",
		slog.Duration("interval", s.interval),
		slog.Bool("watching", w != nil))

	for {
		var events chan fsnotify.Event
		var errors chan error
		if w != nil {
			events = w.Events
			errors = w.Errors
		}

		select {
		case <-ctx.Done():
			slog.Info("scheduler: stopped")
			return nil

		case ev, ok := <-events:
			if !ok {
				w = nil
				continue
			}
			s.observe(w, ev)

		case werr, ok := <-errors:
			if !ok {
				w = nil
				continue
			}
			slog.Warn("scheduler: watch error", slog.String("error", werr.Error()))

		case <-ticker.C:
			if w != nil && !s.consumeDirty() {
				continue
			}
			if err := s.service.CommitAll(ctx); err != nil {
				slog.Warn("scheduler: commit failed", slog.String("error", err.Error()))
				s.markDirty()
			}
		}
	}
}

// observe marks the vault dirty and extends the watch list when a new
// directory appears. Activity under .git is the committing itself and
// is ignored.
func (s *Scheduler) observe(w *fsnotify.Watcher, ev fsnotify.Event) {
	if s.isMetadata(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if addErr := s.addDirsRecursive(w, ev.Name); addErr != nil {
				slog.Warn("scheduler: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", addErr.Error()))
			}
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		s.markDirty()
	}
}

func (s *Scheduler) isMetadata(abs string) bool {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == ".git" || strings.HasPrefix(rel, ".git/")
}

func (s *Scheduler) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// consumeDirty returns the dirty flag and clears it.
func (s *Scheduler) consumeDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}

func (s *Scheduler) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" && p != root {
			return filepath.SkipDir
		}
		if addErr := w.Add(p); addErr != nil {
			slog.Warn("scheduler: watch add failed", slog.String("path", p), slog.String("error", addErr.Error()))
		}
		return nil
	})
}
