// Package git runs the git binary for branch and status queries and turns
// its text output into structures the explorer can overlay on its tree.
package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/CageChen/filehub/internal/log"
)

// Result is the captured outcome of one git invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs git with args inside dir. A non-nil error means the process
// could not be started; a process that ran and failed reports a non-zero
// ExitCode with a nil error.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct {
	// Binary is the git executable, "git" when empty.
	Binary string
	// SuppressConsole keeps git from flashing a console window on Windows.
	SuppressConsole bool
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// NewExecRunner creates an ExecRunner for the given binary.
func NewExecRunner(binary string, suppressConsole bool) *ExecRunner {
	return &ExecRunner{Binary: binary, SuppressConsole: suppressConsole}
}

func (r *ExecRunner) binary() string {
	if r.Binary == "" {
		return "git"
	}
	return r.Binary
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	log.Debugf("run: git %s (cwd=%s)", strings.Join(args, " "), dir)

	// #nosec G204 -- argument vectors are fixed by Reader; only paths and branch names vary
	cmd := exec.CommandContext(ctx, r.binary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)
	applyConsoleAttrs(cmd, r.SuppressConsole)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			log.Debugf("error: git %s (exit %d)", strings.Join(args, " "), res.ExitCode)
			return res, nil
		}
		log.Debugf("error: git %s: %v", strings.Join(args, " "), err)
		return res, err
	}
	return res, nil
}
