package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Args carries the arguments of every call, named as the UI names them.
type Args struct {
	Path       string `json:"path" form:"path"`
	Content    string `json:"content" form:"content"`
	OldPath    string `json:"oldPath" form:"oldPath"`
	NewPath    string `json:"newPath" form:"newPath"`
	WorkingDir string `json:"workingDir" form:"workingDir"`
	Branch     string `json:"branch" form:"branch"`
}

// command runs one call. A nil result means the call returns nothing.
type command func(ctx context.Context, args Args) (any, error)

func required(name, value string) error {
	if value == "" {
		return badRequest(name + " is required")
	}
	return nil
}

// invokeRequest is one call on the invoke channel.
type invokeRequest struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args"`
}

// invokeResponse answers an invokeRequest with the same id.
type invokeResponse struct {
	ID     string     `json:"id"`
	OK     bool       `json:"ok"`
	Result any        `json:"result"`
	Error  *errorBody `json:"error,omitempty"`
}

func newInvokeResponse(id string, result any, err error) (int, invokeResponse) {
	if err != nil {
		status, body := classify(err)
		return status, invokeResponse{ID: id, Error: &body}
	}
	return http.StatusOK, invokeResponse{ID: id, OK: true, Result: result}
}

// Invoker dispatches calls by name, the way the desktop shell invokes
// backend commands.
type Invoker struct {
	commands map[string]command
}

// NewInvoker builds the command table from the file and git handlers.
func NewInvoker(files *FileHandler, repo *GitHandler) *Invoker {
	commands := make(map[string]command)
	for name, cmd := range files.commands() {
		commands[name] = cmd
	}
	for name, cmd := range repo.commands() {
		commands[name] = cmd
	}
	return &Invoker{commands: commands}
}

// Commands lists the registered command names in order.
func (inv *Invoker) Commands() []string {
	names := make([]string, 0, len(inv.commands))
	for name := range inv.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke decodes raw into Args and runs the named command.
func (inv *Invoker) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	cmd, ok := inv.commands[name]
	if !ok {
		return nil, &requestError{status: http.StatusNotFound, msg: fmt.Sprintf("unknown command %q", name)}
	}

	var args Args
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, badRequest("invalid arguments: " + err.Error())
		}
	}
	return run(ctx, name, cmd, args)
}

// HandleInvoke serves POST /api/invoke/:command with the arguments as the
// JSON body.
func (inv *Invoker) HandleInvoke(c *gin.Context) {
	if err := requireJSON(c); err != nil {
		status, resp := newInvokeResponse(requestIDFrom(c), nil, err)
		c.JSON(status, resp)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		status, resp := newInvokeResponse(requestIDFrom(c), nil, badRequest("unreadable body"))
		c.JSON(status, resp)
		return
	}

	result, err := inv.Invoke(context.WithoutCancel(c.Request.Context()), c.Param("command"), raw)
	status, resp := newInvokeResponse(requestIDFrom(c), result, err)
	c.JSON(status, resp)
}

// ListCommands serves GET /api/invoke.
func (inv *Invoker) ListCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": inv.Commands()})
}

// run executes cmd and logs failures.
func run(ctx context.Context, name string, cmd command, args Args) (any, error) {
	result, err := cmd(ctx, args)
	if err != nil {
		log.Debugf("%s failed: %v", name, err)
		return nil, err
	}
	return result, nil
}

// respondQuery binds Args from the query string and writes the result.
func respondQuery(c *gin.Context, name string, cmd command) {
	var args Args
	if err := c.ShouldBindQuery(&args); err != nil {
		writeError(c, badRequest("invalid query: "+err.Error()))
		return
	}
	respond(c, name, cmd, args)
}

// requireJSON rejects bodies not sent as application/json. Such bodies can
// be posted cross-origin without a CORS preflight.
func requireJSON(c *gin.Context) error {
	if c.ContentType() != binding.MIMEJSON {
		return &requestError{
			status: http.StatusUnsupportedMediaType,
			msg:    "Content-Type must be " + binding.MIMEJSON,
		}
	}
	return nil
}

// respondJSON binds Args from the JSON body and writes the result.
func respondJSON(c *gin.Context, name string, cmd command) {
	if err := requireJSON(c); err != nil {
		writeError(c, err)
		return
	}

	var args Args
	if err := c.ShouldBindJSON(&args); err != nil {
		writeError(c, badRequest("invalid request body: "+err.Error()))
		return
	}
	respond(c, name, cmd, args)
}

// respond runs cmd without tying it to the client connection: a git
// subprocess is never killed halfway because the caller went away.
func respond(c *gin.Context, name string, cmd command, args Args) {
	result, err := run(context.WithoutCancel(c.Request.Context()), name, cmd, args)
	if err != nil {
		writeError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.JSON(http.StatusOK, result)
}

func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, body)
}
