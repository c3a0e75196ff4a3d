package gitvcs

import (
	"context"
	"os/exec"
	"testing"

	"github.com/starford/othala/internal/vault"
)

// realService builds a service running the actual git binary; skipped
// when git is not installed.
func realService(t *testing.T) (*Service, *vault.Vault) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(v, NewStatusRecord()), v
}

func TestRealGitCommitAndHistory(t *testing.T) {
	s, v := realService(t)
	ctx := context.Background()

	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeNote(t, v, "note.md", "first\n")
	if err := s.CommitFile(ctx, "note.md"); err != nil {
		t.Fatalf("CommitFile: %v", err)
	}

	writeNote(t, v, "note.md", "second\n")
	if err := s.CommitFile(ctx, "note.md"); err != nil {
		t.Fatalf("CommitFile second: %v", err)
	}

	records, err := s.History(ctx, "note.md")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if !records[0].IsCurrent {
		t.Error("newest commit should be current")
	}

	old, err := s.ContentAt(ctx, "note.md", records[1].Hash)
	if err != nil {
		t.Fatalf("ContentAt: %v", err)
	}
	if old != "first\n" {
		t.Errorf("old content = %q", old)
	}
}

func TestRealGitCommitAllSkipsIgnored(t *testing.T) {
	s, v := realService(t)
	ctx := context.Background()

	writeNote(t, v, "note.md", "text\n")
	writeNote(t, v, "_resources/pic.png", "fakepng")

	if err := s.CommitAll(ctx); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}

	records, err := s.History(ctx, "note.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("note history = %+v", records)
	}

	// The resources directory never enters history.
	res, err := s.run.Run(ctx, queryTimeout, "log", "--format=%H", "--", "_resources")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "" {
		t.Errorf("ignored path was committed: %q", res.Stdout)
	}
}

func TestRealGitCommitAllCleanTree(t *testing.T) {
	s, _ := realService(t)
	ctx := context.Background()

	if err := s.CommitAll(ctx); err != nil {
		t.Fatalf("CommitAll on empty vault: %v", err)
	}
	// Second run with nothing changed is still a no-op success.
	if err := s.CommitAll(ctx); err != nil {
		t.Fatalf("CommitAll repeat: %v", err)
	}
}
