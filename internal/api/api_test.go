package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"

	"github.com/starford/othala/internal/auth"
	"github.com/starford/othala/internal/gitvcs"
	"github.com/starford/othala/internal/images"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/vault"
)

const (
	testSecret   = "test-secret"
	testPassword = "hunter2"
)

type env struct {
	vault  *vault.Vault
	git    *gitvcs.Service
	router http.Handler
}

// newEnv sets up a temp vault and the full router. The search engine
// uses the in-process scanner on both slots so tests do not depend on
// ripgrep.
func newEnv(t *testing.T, authEnabled bool) *env {
	t.Helper()
	v, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sc := search.NewScanner(v)
	git := gitvcs.NewService(v, gitvcs.NewStatusRecord())
	h := NewHandler(
		v,
		search.NewEngineWith(v, sc, sc),
		git,
		auth.NewService(testSecret, testPassword, authEnabled),
		images.NewService(v),
	)
	return &env{vault: v, git: git, router: NewRouter(h)}
}

func (e *env) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAuth(t, method, target, body, "")
}

func (e *env) doAuth(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateAndGetNote(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(t, http.MethodPost, "/notes/hello.md", map[string]string{"content": "# Hello\nWorld"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[PathResponse](t, w); resp.Path != "/hello.md" {
		t.Errorf("path = %q", resp.Path)
	}

	w = e.do(t, http.MethodGet, "/notes/hello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	note := decode[NoteDetail](t, w)
	if note.Content != "# Hello\nWorld" || note.Path != "/hello.md" {
		t.Errorf("note = %+v", note)
	}
}

func TestCreateAppendsExtension(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodPost, "/notes/plain", map[string]string{"content": "x"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[PathResponse](t, w); resp.Path != "/plain.md" {
		t.Errorf("path = %q", resp.Path)
	}
}

func TestCreateConflict(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/dup.md", map[string]string{"content": "one"})
	w := e.do(t, http.MethodPost, "/notes/dup.md", map[string]string{"content": "two"})
	if w.Code != http.StatusConflict {
		t.Errorf("code = %d", w.Code)
	}
}

func TestGetMissingNote(t *testing.T) {
	e := newEnv(t, false)
	if w := e.do(t, http.MethodGet, "/notes/ghost.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("code = %d", w.Code)
	}
}

func TestTraversalRejected(t *testing.T) {
	e := newEnv(t, false)
	if w := e.do(t, http.MethodGet, "/notes/..%2Foutside.md", nil); w.Code != http.StatusBadRequest {
		t.Errorf("code = %d %s", w.Code, w.Body.String())
	}
}

func TestUpdateNote(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/u.md", map[string]string{"content": "old"})

	w := e.do(t, http.MethodPut, "/notes/u.md", map[string]string{"content": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	note := decode[NoteDetail](t, e.do(t, http.MethodGet, "/notes/u.md", nil))
	if note.Content != "new" {
		t.Errorf("content = %q", note.Content)
	}
}

func TestUpdateMissingNote(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodPut, "/notes/ghost.md", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/d.md", map[string]string{"content": "x"})

	if w := e.do(t, http.MethodDelete, "/notes/d.md", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/notes/d.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("code after delete = %d", w.Code)
	}
}

func TestTreeEndpoint(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/topics/a.md", map[string]string{"content": "a"})
	e.do(t, http.MethodPost, "/notes/b.md", map[string]string{"content": "b"})

	w := e.do(t, http.MethodGet, "/notes/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tree: %d", w.Code)
	}
	root := decode[FileTreeNode](t, w)
	if root.Path != "/" || len(root.Children) != 2 {
		t.Errorf("root = %+v", root)
	}
	// Directories sort before files.
	if root.Children[0].Name != "topics" || root.Children[1].Name != "b.md" {
		t.Errorf("children = %v, %v", root.Children[0].Name, root.Children[1].Name)
	}
}

func TestMoveNote(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/src.md", map[string]string{"content": "data"})

	w := e.do(t, http.MethodPost, "/notes/src.md/move", map[string]string{"destination": "archive/dst.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("move: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[PathResponse](t, w); resp.Path != "/archive/dst.md" {
		t.Errorf("path = %q", resp.Path)
	}
	if w := e.do(t, http.MethodGet, "/notes/src.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("source survived: %d", w.Code)
	}
}

func TestCopyNote(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/src.md", map[string]string{"content": "data"})

	w := e.do(t, http.MethodPost, "/notes/src.md/copy", map[string]string{"destination": "twin.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("copy: %d %s", w.Code, w.Body.String())
	}
	for _, p := range []string{"/notes/src.md", "/notes/twin.md"} {
		if w := e.do(t, http.MethodGet, p, nil); w.Code != http.StatusOK {
			t.Errorf("GET %s: %d", p, w.Code)
		}
	}
}

func TestMoveWithoutDestination(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/a.md", map[string]string{"content": "x"})
	w := e.do(t, http.MethodPost, "/notes/a.md/move", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/alpha.md", map[string]string{"content": "the quick brown fox"})
	e.do(t, http.MethodPost, "/notes/beta.md", map[string]string{"content": "unrelated"})

	w := e.do(t, http.MethodGet, "/notes/search/?q=quick+fox", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	resp := decode[SearchResponse](t, w)
	if resp.Total != 1 || resp.Results[0].Path != "/alpha.md" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newEnv(t, false)
	if w := e.do(t, http.MethodGet, "/notes/search/", nil); w.Code != http.StatusBadRequest {
		t.Errorf("code = %d", w.Code)
	}
}

func TestDirectoryLifecycle(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(t, http.MethodPost, "/dirs/projects", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create dir: %d %s", w.Code, w.Body.String())
	}

	e.do(t, http.MethodPost, "/notes/projects/p.md", map[string]string{"content": "x"})

	w = e.do(t, http.MethodGet, "/dirs/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get dir: %d", w.Code)
	}
	dir := decode[DirDetail](t, w)
	if dir.ItemCount != 1 || dir.Contents[0].Path != "/projects/p.md" {
		t.Errorf("dir = %+v", dir)
	}

	// Non-empty requires recursive.
	if w := e.do(t, http.MethodDelete, "/dirs/projects", nil); w.Code != http.StatusBadRequest {
		t.Errorf("delete non-empty: %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/dirs/projects?recursive=true", nil); w.Code != http.StatusNoContent {
		t.Errorf("recursive delete: %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/dirs/projects", nil); w.Code != http.StatusNotFound {
		t.Errorf("after delete: %d", w.Code)
	}
}

func TestDirectoryMoveCircular(t *testing.T) {
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/dirs/parent", nil)
	w := e.do(t, http.MethodPost, "/dirs/parent/move", map[string]string{"destination": "parent/child"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d %s", w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if resp := decode[HealthResponse](t, w); resp.Status != "ok" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestConfigEndpoint(t *testing.T) {
	e := newEnv(t, true)
	w := e.do(t, http.MethodGet, "/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("config: %d", w.Code)
	}
	if resp := decode[ConfigResponse](t, w); !resp.AuthEnabled {
		t.Error("auth_enabled should be true")
	}
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t, true)

	// Protected routes reject anonymous access.
	w := e.do(t, http.MethodGet, "/notes/", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("missing WWW-Authenticate header")
	}

	// Wrong password.
	w = e.do(t, http.MethodPost, "/auth/login", map[string]any{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", w.Code)
	}

	// Login, then use the token.
	w = e.do(t, http.MethodPost, "/auth/login", map[string]any{"password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	tok := decode[TokenResponse](t, w)
	if tok.TokenType != "bearer" || tok.AccessToken == "" {
		t.Fatalf("token = %+v", tok)
	}

	if w := e.doAuth(t, http.MethodGet, "/notes/", nil, tok.AccessToken); w.Code != http.StatusOK {
		t.Errorf("with token: %d", w.Code)
	}
	w = e.doAuth(t, http.MethodGet, "/auth/verify", nil, tok.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d", w.Code)
	}
	if resp := decode[VerifyResponse](t, w); !resp.Valid {
		t.Error("verify should report valid")
	}

	if w := e.doAuth(t, http.MethodGet, "/notes/", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: %d", w.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	e := newEnv(t, false)
	if w := e.do(t, http.MethodGet, "/notes/", nil); w.Code != http.StatusOK {
		t.Errorf("code = %d", w.Code)
	}
}

func TestUploadImage(t *testing.T) {
	e := newEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pic.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake png")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/images/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	up := decode[images.Upload](t, w)
	if up.Path == "" || up.Size != int64(len("fake png")) {
		t.Errorf("upload = %+v", up)
	}
}

func TestUploadImageBadType(t *testing.T) {
	e := newEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "run.exe")
	_, _ = fw.Write([]byte("MZ"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/images/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d %s", w.Code, w.Body.String())
	}
}

// TestVersionLifecycle drives the history endpoints against the real
// git binary.
func TestVersionLifecycle(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e := newEnv(t, false)
	ctx := t.Context()

	if w := e.do(t, http.MethodPost, "/notes/note1.md", map[string]string{"content": "v1"}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	if err := e.git.CommitFile(ctx, "note1.md"); err != nil {
		t.Fatalf("commit v1: %v", err)
	}
	if w := e.do(t, http.MethodPut, "/notes/note1.md", map[string]string{"content": "v2"}); w.Code != http.StatusOK {
		t.Fatalf("update: %d", w.Code)
	}
	if err := e.git.CommitFile(ctx, "note1.md"); err != nil {
		t.Fatalf("commit v2: %v", err)
	}

	w := e.do(t, http.MethodGet, "/notes/note1.md/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	hist := decode[HistoryResponse](t, w)
	if len(hist.History) != 2 {
		t.Fatalf("history = %+v", hist)
	}
	oldHash := hist.History[1].Hash

	w = e.do(t, http.MethodGet, "/notes/note1.md/versions/"+oldHash, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("version: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[VersionResponse](t, w); resp.Content != "v1" {
		t.Errorf("version content = %q", resp.Content)
	}

	w = e.do(t, http.MethodPost, "/notes/note1.md/restore", map[string]string{"hash": oldHash})
	if w.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", w.Code, w.Body.String())
	}
	note := decode[NoteDetail](t, e.do(t, http.MethodGet, "/notes/note1.md", nil))
	if note.Content != "v1" {
		t.Errorf("restored content = %q", note.Content)
	}

	// The restore itself is versioned.
	hist = decode[HistoryResponse](t, e.do(t, http.MethodGet, "/notes/note1.md/history", nil))
	if len(hist.History) <= 2 {
		t.Errorf("history after restore = %+v", hist)
	}
}

func TestVersionBadHash(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e := newEnv(t, false)
	e.do(t, http.MethodPost, "/notes/n.md", map[string]string{"content": "x"})
	if err := e.git.CommitFile(t.Context(), "n.md"); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodGet, "/notes/n.md/versions/deadbeef", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d %s", w.Code, w.Body.String())
	}
}

func TestHistoryUntracked(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	e := newEnv(t, false)
	if err := e.git.Init(t.Context()); err != nil {
		t.Skipf("git init failed: %v", err)
	}
	e.do(t, http.MethodPost, "/notes/fresh.md", map[string]string{"content": "x"})

	w := e.do(t, http.MethodGet, "/notes/fresh.md/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	if hist := decode[HistoryResponse](t, w); len(hist.History) != 0 {
		t.Errorf("history = %+v", hist.History)
	}
}
