package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/CageChen/filehub/internal/config"
	mfs "github.com/CageChen/filehub/internal/fs"
	"github.com/CageChen/filehub/internal/git"
	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.SetOutput(nil)
	os.Exit(m.Run())
}

// fakeGit is a GitService with canned answers.
type fakeGit struct {
	branch   string
	branches []string
	status   map[string]git.StatusKind
	isRepo   bool
	err      error

	switchedTo string
	workingDir string
}

func (f *fakeGit) CurrentBranch(_ context.Context, wd string) (string, error) {
	f.workingDir = wd
	return f.branch, f.err
}

func (f *fakeGit) Branches(_ context.Context, wd string) ([]string, error) {
	f.workingDir = wd
	return f.branches, f.err
}

func (f *fakeGit) SwitchBranch(_ context.Context, wd, branch string) (string, error) {
	f.workingDir = wd
	if f.err != nil {
		return "", f.err
	}
	f.switchedTo = branch
	return "Switched to branch '" + branch + "'", nil
}

func (f *fakeGit) Status(_ context.Context, wd string) (map[string]git.StatusKind, error) {
	f.workingDir = wd
	return f.status, f.err
}

func (f *fakeGit) IsRepo(_ context.Context, wd string) (bool, error) {
	f.workingDir = wd
	return f.isRepo, f.err
}

func (f *fakeGit) Init(_ context.Context, wd string) (bool, error) {
	f.workingDir = wd
	return f.err == nil, f.err
}

func newTestRouter(t *testing.T, g GitService) *gin.Engine {
	t.Helper()
	return NewRouter(config.DefaultConfig(), mfs.NewLocalFS(), g)
}

// testHost is the Host header test requests carry; httptest defaults to
// example.com, which the host check rejects.
const testHost = "localhost:8080"

func newRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Host = testHost
	return req
}

func do(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := newRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func q(path string) string {
	return url.QueryEscape(path)
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.puml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), nil, 0o644))
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodGet, "/api/dir?path="+q(dir), nil)

	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]map[string]any](t, w)
	require.Len(t, entries, 2)
	assert.Equal(t, "src", entries[0]["name"])
	assert.Equal(t, true, entries[0]["is_dir"])
	assert.Equal(t, filepath.Join(dir, "src"), entries[0]["path"])
	assert.Nil(t, entries[0]["children"])
	assert.Equal(t, "a.puml", entries[1]["name"])
	assert.Equal(t, false, entries[1]["is_dir"])
}

func TestListDir_NotFound(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodGet, "/api/dir?path="+q(filepath.Join(t.TempDir(), "missing")), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "Path does not exist", body.Error)
	assert.Equal(t, kindIO, body.Kind)
	assert.Equal(t, "not_found", body.Code)
}

func TestListDir_MissingPath(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodGet, "/api/dir", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "path is required", decode[errorBody](t, w).Error)
}

func TestFileLifecycle(t *testing.T) {
	root := t.TempDir()
	r := newTestRouter(t, &fakeGit{})
	dir := filepath.Join(root, "a", "b", "c")
	file := filepath.Join(dir, "diagram.puml")
	renamed := filepath.Join(dir, "renamed.puml")

	w := do(t, r, http.MethodPost, "/api/dir", Args{Path: dir})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/file", Args{Path: file})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPut, "/api/file", Args{Path: file, Content: "@startuml\n@enduml\n"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/file?path="+q(file), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "@startuml\n@enduml\n", decode[string](t, w))

	w = do(t, r, http.MethodPost, "/api/node/rename", Args{OldPath: file, NewPath: renamed})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/dir?path="+q(dir), nil)
	entries := decode[[]mfs.TreeEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "renamed.puml", entries[0].Name)

	w = do(t, r, http.MethodDelete, "/api/node?path="+q(filepath.Join(root, "a")), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/dir?path="+q(root), nil)
	assert.Empty(t, decode[[]mfs.TreeEntry](t, w))
}

func TestWriteEmptyContent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empty.txt")
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodPut, "/api/file", Args{Path: file, Content: ""})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/file?path="+q(file), nil)
	assert.Equal(t, "", decode[string](t, w))
}

func TestRenameNode_MissingArgs(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodPost, "/api/node/rename", Args{OldPath: "/tmp/x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "newPath is required", decode[errorBody](t, w).Error)
}

func TestInvalidJSONBody(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})
	req := newRequest(http.MethodPost, "/api/dir", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, kindRequest, decode[errorBody](t, w).Kind)
}

func TestGitRoutes(t *testing.T) {
	g := &fakeGit{
		branch:   "main",
		branches: []string{"main", "dev"},
		status:   map[string]git.StatusKind{"/repo/src/main.rs": git.StatusModified},
		isRepo:   true,
	}
	r := newTestRouter(t, g)

	w := do(t, r, http.MethodGet, "/api/git/branch?workingDir=%2Frepo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "main", decode[string](t, w))
	assert.Equal(t, "/repo", g.workingDir)

	w = do(t, r, http.MethodGet, "/api/git/branches?workingDir=%2Frepo", nil)
	assert.Equal(t, []string{"main", "dev"}, decode[[]string](t, w))

	w = do(t, r, http.MethodGet, "/api/git/status?workingDir=%2Frepo", nil)
	assert.Equal(t, map[string]string{"/repo/src/main.rs": "modified"}, decode[map[string]string](t, w))

	w = do(t, r, http.MethodGet, "/api/git/repo?workingDir=%2Frepo", nil)
	assert.Equal(t, true, decode[bool](t, w))

	w = do(t, r, http.MethodPost, "/api/git/init", Args{WorkingDir: "/repo"})
	assert.Equal(t, true, decode[bool](t, w))

	w = do(t, r, http.MethodPost, "/api/git/checkout", Args{WorkingDir: "/repo", Branch: "dev"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Switched to branch 'dev'", decode[string](t, w))
	assert.Equal(t, "dev", g.switchedTo)
}

func TestGitRoutes_EmptyBranch(t *testing.T) {
	r := newTestRouter(t, &fakeGit{branch: ""})

	w := do(t, r, http.MethodGet, "/api/git/branch?workingDir=%2Frepo", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode[string](t, w))
}

func TestGitRoutes_CommandError(t *testing.T) {
	stderr := "fatal: not a git repository (or any of the parent directories): .git\n"
	r := newTestRouter(t, &fakeGit{err: &git.CommandError{Args: []string{"status"}, ExitCode: 128, Stderr: stderr}})

	w := do(t, r, http.MethodGet, "/api/git/status?workingDir=%2Ftmp", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, stderr, body.Error)
	assert.Equal(t, kindCommand, body.Kind)
}

func TestGitRoutes_LaunchError(t *testing.T) {
	r := newTestRouter(t, &fakeGit{err: &git.ProcessLaunchError{Err: exec.ErrNotFound}})

	w := do(t, r, http.MethodGet, "/api/git/repo?workingDir=%2Ftmp", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, kindLaunch, decode[errorBody](t, w).Kind)
}

func TestCheckout_RejectsOptionLikeBranch(t *testing.T) {
	g := &fakeGit{}
	r := newTestRouter(t, g)

	w := do(t, r, http.MethodPost, "/api/git/checkout", Args{WorkingDir: "/repo", Branch: "--orphan"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, g.switchedTo)
}

func TestInvoke(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "docs"), 0o755))
	r := newTestRouter(t, &fakeGit{status: map[string]git.StatusKind{}})

	w := do(t, r, http.MethodPost, "/api/invoke/list_dir", map[string]string{"path": dir})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		ID     string          `json:"id"`
		OK     bool            `json:"ok"`
		Result []mfs.TreeEntry `json:"result"`
	}](t, w)
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, w.Header().Get(requestIDHeader), resp.ID)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, "docs", resp.Result[0].Name)
}

func TestInvoke_UnknownCommand(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodPost, "/api/invoke/greet", map[string]string{"name": "x"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[invokeResponse](t, w)
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, kindRequest, resp.Error.Kind)
}

func TestInvoke_ReusesRequestID(t *testing.T) {
	r := newTestRouter(t, &fakeGit{isRepo: true})
	req := newRequest(http.MethodPost, "/api/invoke/is_git_repo", strings.NewReader(`{"workingDir":"/repo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[invokeResponse](t, w)
	assert.Equal(t, "req-42", resp.ID)
	assert.Equal(t, true, resp.Result)
}

func TestListCommands(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})

	w := do(t, r, http.MethodGet, "/api/invoke", nil)

	body := decode[map[string][]string](t, w)
	assert.Equal(t, []string{
		"create_directory",
		"create_file",
		"delete_node",
		"get_all_branches",
		"get_current_branch",
		"get_git_status",
		"init_git_repo",
		"is_git_repo",
		"list_dir",
		"read_file_content",
		"rename_node",
		"switch_branch",
		"write_file_content",
	}, body["commands"])
}

func TestWebSocketInvoke(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	srv := httptest.NewServer(newTestRouter(t, &fakeGit{branches: []string{"main", "dev"}}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	requests := []map[string]any{
		{"id": "1", "command": "list_dir", "args": map[string]string{"path": dir}},
		{"id": "2", "command": "get_all_branches", "args": map[string]string{"workingDir": "/repo"}},
		{"id": "3", "command": "nope"},
	}
	for _, req := range requests {
		require.NoError(t, conn.WriteJSON(req))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	got := make(map[string]invokeResponse)
	for range requests {
		var resp invokeResponse
		require.NoError(t, conn.ReadJSON(&resp))
		got[resp.ID] = resp
	}

	assert.True(t, got["1"].OK)
	assert.Len(t, got["1"].Result, 1)
	assert.True(t, got["2"].OK)
	assert.Equal(t, []any{"main", "dev"}, got["2"].Result)
	assert.False(t, got["3"].OK)
	require.NotNil(t, got["3"].Error)
	assert.Contains(t, got["3"].Error.Error, "unknown command")
}

func TestWebSocketInvalidMessage(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, &fakeGit{}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var resp invokeResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, kindRequest, resp.Error.Kind)
}

func TestWebSocketOriginCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowOrigins = []string{"http://localhost:1420"}
	srv := httptest.NewServer(NewRouter(cfg, mfs.NewLocalFS(), &fakeGit{}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	header = http.Header{"Origin": []string{"http://localhost:1420"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowOrigins = []string{"http://localhost:1420"}
	r := NewRouter(cfg, mfs.NewLocalFS(), &fakeGit{})
	req := newRequest(http.MethodOptions, "/api/dir", nil)
	req.Header.Set("Origin", "http://localhost:1420")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:1420", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight_DefaultRejectsCrossOrigin(t *testing.T) {
	r := newTestRouter(t, &fakeGit{})
	req := newRequest(http.MethodOptions, "/api/file", nil)
	req.Header.Set("Origin", "http://localhost:1420")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// simplePost sends a body the way a cross-site form or fetch can without a
// preflight: text/plain, from a foreign origin.
func simplePost(r http.Handler, target, origin, body string) *httptest.ResponseRecorder {
	req := newRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCrossOriginInvokeRejected(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("keep me"), 0o644))
	r := newTestRouter(t, &fakeGit{})
	args := `{"path":` + strconv.Quote(file) + `}`

	w := simplePost(r, "/api/invoke/read_file_content", "https://evil.example", args)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, w.Body.String(), "keep me")

	w = simplePost(r, "/api/invoke/delete_node", "https://evil.example", args)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.FileExists(t, file)

	w = simplePost(r, "/api/node/rename", "https://evil.example", `{"oldPath":`+strconv.Quote(file)+`,"newPath":"/tmp/x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.FileExists(t, file)
}

func TestNonJSONBodyRejected(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("keep me"), 0o644))
	r := newTestRouter(t, &fakeGit{})
	args := `{"path":` + strconv.Quote(file) + `}`

	w := simplePost(r, "/api/invoke/delete_node", "", args)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	resp := decode[invokeResponse](t, w)
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, kindRequest, resp.Error.Kind)
	assert.FileExists(t, file)

	w = simplePost(r, "/api/dir", "", args)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, kindRequest, decode[errorBody](t, w).Kind)
}

func TestSameOriginInvokeAllowed(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("keep me"), 0o644))
	r := newTestRouter(t, &fakeGit{})
	req := newRequest(http.MethodPost, "/api/invoke/read_file_content", strings.NewReader(`{"path":`+strconv.Quote(file)+`}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Origin", "http://"+testHost)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "keep me", decode[invokeResponse](t, w).Result)
}

func TestHostCheck(t *testing.T) {
	r := newTestRouter(t, &fakeGit{isRepo: true})

	for _, host := range []string{"evil.example", "evil.example:8080", "192.168.1.10:8080"} {
		req := httptest.NewRequest(http.MethodGet, "/api/git/repo?workingDir=%2Frepo", nil)
		req.Host = host
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, host)
		assert.Equal(t, "host not allowed", decode[errorBody](t, w).Error, host)
	}

	for _, host := range []string{"localhost:8080", "127.0.0.1:8080", "[::1]:8080"} {
		req := httptest.NewRequest(http.MethodGet, "/api/git/repo?workingDir=%2Frepo", nil)
		req.Host = host
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, host)
	}
}

func TestWebSocketDefaultOrigins(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, &fakeGit{}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{srv.URL}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestCORSConfig_SkipsCustomSchemes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowOrigins = []string{"tauri://localhost"}

	cc := corsConfig(cfg)

	assert.False(t, cc.AllowAllOrigins)
	assert.Empty(t, cc.AllowOrigins)
	require.NotNil(t, cc.AllowOriginFunc)
	assert.NoError(t, cc.Validate())
}

func TestClassify(t *testing.T) {
	status, body := classify(&mfs.IOError{Kind: mfs.KindPermissionDenied, Err: os.ErrPermission})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", body.Code)

	status, _ = classify(&mfs.IOError{Kind: mfs.KindAlreadyExists, Err: os.ErrExist})
	assert.Equal(t, http.StatusConflict, status)

	status, body = classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, kindInternal, body.Kind)
}
