//go:build !windows

package execute

import (
	"errors"
	"os/exec"
	"syscall"
)

// shellCommand builds an sh -c invocation in its own process group so a
// deadline kill reaches the whole tree, not just the shell.
func (e *Executor) shellCommand(command string) *exec.Cmd {
	shell := e.shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.Command(shell, "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// terminate kills the command's process group.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		// Group kill failed; fall back to the direct child.
		if killErr := cmd.Process.Kill(); killErr != nil {
			return err
		}
	}
	return nil
}
