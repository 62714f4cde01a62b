//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the shell in its own process group so a timeout
// kill reaches the command it spawned, not just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup signals the whole group. Killing only the shell
// would leave grandchildren holding the output pipes open.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
