package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTreeRoot(t *testing.T) {
	v := tempVault(t)
	root, err := v.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if root.Name != "vault" || root.Path != "/" || root.Type != "directory" {
		t.Errorf("root = %+v", root)
	}
	if root.Children == nil || len(root.Children) != 0 {
		t.Errorf("empty vault should have zero children, got %v", root.Children)
	}
}

func TestTreeContents(t *testing.T) {
	v := tempVault(t)
	_, _ = v.Create("b.md", "b")
	_, _ = v.Create("topics/a.md", "a")
	if err := os.Mkdir(filepath.Join(v.Root(), "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(v.Root(), "skip.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(v.Root(), ".hidden.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	root, err := v.Tree()
	if err != nil {
		t.Fatal(err)
	}

	// Directories sort before files, names case-insensitively.
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	want := []string{"empty", "topics", "b.md"}
	if len(names) != len(want) {
		t.Fatalf("children = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("children = %v, want %v", names, want)
		}
	}

	topics := root.Children[1]
	if topics.Type != "directory" || len(topics.Children) != 1 {
		t.Fatalf("topics = %+v", topics)
	}
	note := topics.Children[0]
	if note.Path != "/topics/a.md" || note.Type != "file" {
		t.Errorf("note = %+v", note)
	}
	if note.Modified == nil {
		t.Error("file node missing modified")
	}
}
