package mcpserver

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/images"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

// quietRunner answers every git invocation with empty success so tool
// tests do not need git on PATH.
type quietRunner struct{}

func (quietRunner) Run(ctx context.Context, timeout time.Duration, args ...string) (gitvcs.Result, error) {
	return gitvcs.Result{}, nil
}

func testServer(t *testing.T) (*Server, *vault.Vault) {
	t.Helper()

	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// The stub runner reports an existing repository, so mark the vault
	// as initialized.
	if err := os.Mkdir(filepath.Join(v.Root(), ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	sc := search.NewScanner(v)
	git := gitvcs.NewServiceWith(v, gitvcs.NewStatusRecord(), quietRunner{})
	srv := New(v, search.NewEngineWith(v, sc, sc), git, images.NewService(v))
	return srv, v
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "note_history":
		result, err = srv.noteHistory(ctx, req)
	case "upload_image":
		result, err = srv.uploadImage(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	res := callTool(t, srv, "create_note", map[string]any{
		"path":    "ideas/spark",
		"content": "# Spark\nbody",
	})
	if res.IsError {
		t.Fatalf("create_note: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "/ideas/spark.md") {
		t.Errorf("create result = %q", resultText(res))
	}

	res = callTool(t, srv, "read_note", map[string]any{"path": "ideas/spark.md"})
	if res.IsError {
		t.Fatalf("read_note: %s", resultText(res))
	}
	if resultText(res) != "# Spark\nbody" {
		t.Errorf("content = %q", resultText(res))
	}
}

func TestReadMissingNote(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "read_note", map[string]any{"path": "nope.md"})
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestListNotesWithFolder(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "work/a.md", "content": "a"})
	callTool(t, srv, "create_note", map[string]any{"path": "home/b.md", "content": "b"})

	res := callTool(t, srv, "list_notes", map[string]any{"folder": "work"})
	text := resultText(res)
	if !strings.Contains(text, "/work/a.md") || strings.Contains(text, "/home/b.md") {
		t.Errorf("list = %q", text)
	}

	res = callTool(t, srv, "list_notes", map[string]any{})
	text = resultText(res)
	if !strings.Contains(text, "/work/a.md") || !strings.Contains(text, "/home/b.md") {
		t.Errorf("unfiltered list = %q", text)
	}
}

func TestSearchNotesTool(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "recipe.md", "content": "lemon tart with meringue"})
	callTool(t, srv, "create_note", map[string]any{"path": "other.md", "content": "grocery list"})

	res := callTool(t, srv, "search_notes", map[string]any{"query": "lemon meringue"})
	text := resultText(res)
	if !strings.Contains(text, "/recipe.md") || strings.Contains(text, "/other.md") {
		t.Errorf("search = %q", text)
	}
}

func TestNoteHistoryEmpty(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_note", map[string]any{"path": "n.md", "content": "x"})

	res := callTool(t, srv, "note_history", map[string]any{"path": "n.md"})
	if res.IsError {
		t.Fatalf("note_history: %s", resultText(res))
	}
	if resultText(res) != "no history" {
		t.Errorf("history = %q", resultText(res))
	}
}

func TestUploadImageTool(t *testing.T) {
	srv, v := testServer(t)

	data := base64.StdEncoding.EncodeToString([]byte("fake png"))
	res := callTool(t, srv, "upload_image", map[string]any{
		"filename": "shot.png",
		"data":     data,
	})
	if res.IsError {
		t.Fatalf("upload_image: %s", resultText(res))
	}
	text := resultText(res)
	if !strings.Contains(text, "/"+images.ResourcesDir+"/") {
		t.Errorf("result = %q", text)
	}
	entries, err := os.ReadDir(filepath.Join(v.Root(), images.ResourcesDir))
	if err != nil || len(entries) != 1 {
		t.Fatalf("resources dir: %v %v", entries, err)
	}
}

func TestToolRegistration(t *testing.T) {
	srv, _ := testServer(t)
	if srv.MCPServer() == nil {
		t.Fatal("underlying MCP server missing")
	}
}
