// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/images"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp    *server.MCPServer
	vault  *vault.Vault
	search *search.Engine
	git    *gitvcs.Service
	images *images.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(v *vault.Vault, se *search.Engine, git *gitvcs.Service, im *images.Service) *Server {
	s := &Server{vault: v, search: se, git: git, images: im}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Fuzzy multi-phrase search through note content and filenames. "+
			"All space-separated phrases must match."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Space-separated search phrases")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"A missing .md extension is added automatically."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes under a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("note_history",
		mcp.WithDescription("Get the version history of a note, newest first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.noteHistory)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Store a base64-encoded image in the vault's resources directory. "+
			"Returns a markdownImage field ready to paste into a note body."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Original filename (extension selects the type)")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64-encoded file content")),
	), s.uploadImage)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.search.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(resp.Results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.vault.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := s.vault.Create(path, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", created)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")

	root, err := s.vault.Tree()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prefix := "/"
	if folder != "" {
		prefix = "/" + strings.Trim(folder, "/") + "/"
	}
	var paths []string
	collectNotes(root, prefix, &paths)
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

// collectNotes gathers file paths under prefix in tree order.
func collectNotes(node *vault.FileTreeNode, prefix string, out *[]string) {
	if node.Type == "file" {
		if strings.HasPrefix(node.Path, prefix) {
			*out = append(*out, node.Path)
		}
		return
	}
	for _, child := range node.Children {
		collectNotes(child, prefix, out)
	}
}

func (s *Server) noteHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.git.History(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("no history"), nil
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
