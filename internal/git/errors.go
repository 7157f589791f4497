package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProcess matches every error caused by running git, whether it failed
// to start or exited non-zero.
var ErrProcess = errors.New("git process error")

// ProcessLaunchError reports that the git process could not be started.
type ProcessLaunchError struct {
	Err error
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("Failed to execute git command: %v", e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}

// Is reports ErrProcess.
func (e *ProcessLaunchError) Is(target error) bool {
	return target == ErrProcess
}

// CommandError reports that git ran and exited non-zero. Stderr is git's
// error output, unmodified apart from invalid UTF-8 replacement.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("git %s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
}

// Is reports ErrProcess.
func (e *CommandError) Is(target error) bool {
	return target == ErrProcess
}
