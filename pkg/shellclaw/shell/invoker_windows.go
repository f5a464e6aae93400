//go:build windows

package shell

import "os/exec"

// setProcessGroup is a reduced variant for Windows: there is no POSIX
// process group to target, so cancellation kills the shell process and
// relies on the OS to reap its children.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
