//go:build !windows

package git

import "os/exec"

// applyConsoleAttrs is a no-op: only Windows opens console windows for
// child processes.
func applyConsoleAttrs(_ *exec.Cmd, _ bool) {}
