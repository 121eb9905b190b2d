//go:build windows

package execute

import "os/exec"

func (e *Executor) shellCommand(command string) *exec.Cmd {
	shell := e.shell
	if shell == "" {
		shell = "cmd"
	}
	return exec.Command(shell, "/C", command)
}

func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
