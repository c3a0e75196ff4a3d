package vault

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// FileTreeNode is one entry in the recursive vault listing. The tree is
// rebuilt from the filesystem on every request; nothing is cached.
type FileTreeNode struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Type     string          `json:"type"` // "file" or "directory"
	Children []*FileTreeNode `json:"children"`
	Created  *int64          `json:"created,omitempty"`
	Modified *int64          `json:"modified,omitempty"`
}

// Tree builds the full vault tree. Hidden entries are skipped, directories
// are included even when empty, and only markdown files appear as file
// nodes.
func (v *Vault) Tree() (*FileTreeNode, error) {
	root, err := v.buildTree(v.root, "")
	if err != nil {
		return nil, err
	}
	root.Name = "vault"
	root.Path = "/"
	return root, nil
}

func (v *Vault) buildTree(dir, rel string) (*FileTreeNode, error) {
	node := &FileTreeNode{
		Name:     path.Base(rel),
		Path:     v.Rooted(rel),
		Type:     "directory",
		Children: []*FileTreeNode{},
	}
	if info, err := os.Stat(dir); err == nil {
		node.Modified = epoch(info.ModTime().Unix())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return node, nil
		}
		return nil, fmt.Errorf("vault: list %s: %w", v.Rooted(rel), err)
	}
	sortEntriesDirsFirst(entries)

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		if e.IsDir() {
			child, err := v.buildTree(dir+string(os.PathSeparator)+e.Name(), childRel)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		if !IsMarkdown(e.Name()) {
			continue
		}
		child := &FileTreeNode{
			Name:     e.Name(),
			Path:     v.Rooted(childRel),
			Type:     "file",
			Children: []*FileTreeNode{},
		}
		if info, err := e.Info(); err == nil {
			child.Modified = epoch(info.ModTime().Unix())
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// sortEntriesDirsFirst orders directories before files, then by name
// case-insensitively.
func sortEntriesDirsFirst(entries []os.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
}

func epoch(v int64) *int64 {
	return &v
}
