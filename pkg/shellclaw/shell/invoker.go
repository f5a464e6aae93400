// Package shell – invoker.go runs one shell command as a bounded
// subprocess and returns a structured result.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// TimeoutExitCode is the synthetic exit status reported when a command
// exceeds its deadline, following the POSIX timeout(1) convention.
const TimeoutExitCode = 124

// timeoutMessage is the fixed stderr text of a synthetic timeout result.
const timeoutMessage = "Command timed out"

// Invoker spawns one subprocess per call through the host shell.
type Invoker struct {
	profile OSProfile
	logger  *slog.Logger
}

// NewInvoker creates an invoker for the given OS profile.
func NewInvoker(profile OSProfile, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{profile: profile, logger: logger.With("component", "invoker")}
}

// Profile returns the OS profile the invoker runs commands with.
func (v *Invoker) Profile() OSProfile { return v.profile }

// Invoke runs command in workDir with a wall-clock deadline.
//
// On timeout the process group is killed, its termination is awaited, and
// the returned result carries exit code 124 with empty stdout and a fixed
// "timed out" stderr message. A spawn failure (shell missing, bad workDir)
// is returned as an error; every other outcome, including nonzero exits,
// is a plain result.
func (v *Invoker) Invoke(ctx context.Context, command, workDir string, timeout time.Duration) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	argv := v.profile.Args(command)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Kill the whole process tree on deadline, not just the shell.
	setProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		v.logger.Warn("command timed out",
			"command", command,
			"timeout", timeout,
			"elapsed", time.Since(start))
		return Result{
			Command:  command,
			ExitCode: TimeoutExitCode,
			Stdout:   "",
			Stderr:   timeoutMessage,
		}, nil
	}

	result := Result{
		Command:  command,
		ExitCode: 0,
		Stdout:   sanitize(stdout.String()),
		Stderr:   sanitize(stderr.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			if result.ExitCode < 0 {
				// Killed by a signal outside our deadline handling.
				result.ExitCode = 1
			}
		} else {
			return result, fmt.Errorf("shell: spawning %q: %w", command, err)
		}
	}

	v.logger.Debug("command finished",
		"command", command,
		"exit_code", result.ExitCode,
		"elapsed", time.Since(start))
	return result, nil
}

// sanitize replaces invalid UTF-8 sequences so results survive JSON
// encoding and chat transport.
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "�")
}
