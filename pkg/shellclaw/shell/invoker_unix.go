//go:build !windows

// Package shell – invoker_unix.go places each subprocess in its own
// process group so a timeout kills the entire tree the shell spawned.
package shell

import (
	"os/exec"
	"syscall"
)

// setProcessGroup configures cmd so cancellation reaches every process
// the shell started, not just the shell itself.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	// Cancel kills the process group.
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
}
