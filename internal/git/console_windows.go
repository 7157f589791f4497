//go:build windows

package git

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func applyConsoleAttrs(cmd *exec.Cmd, suppress bool) {
	if !suppress {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
