// Package engine – intercept.go recognizes directory-change instructions
// and applies them to session state without spawning a process.
package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

// A ; or && inside a quoted path argument is still treated as a command
// separator. The shell would agree on the separator but not the quoting;
// accepted as-is since the interceptor never parses full shell grammar.
var (
	unixChangeRe    = regexp.MustCompile(`^cd\s+([^;&]+)(?:\s*;|\s*&&\s*|\s*$)(.*)$`)
	unixBareRe      = regexp.MustCompile(`^cd\s*$`)
	windowsChangeRe = regexp.MustCompile(`(?i)^(?:Set-Location|cd)\s+([^;&]+)(?:\s*;|\s*&&\s*|\s*$)(.*)$`)
	windowsBareRe   = regexp.MustCompile(`(?i)^(?:Set-Location|cd)\s*$`)
)

// Interceptor updates the session working directory for cd-like
// instructions. Windows sessions additionally recognize Set-Location.
type Interceptor struct {
	workdirs *session.WorkdirStore
	profile  shell.OSProfile
	logger   *slog.Logger
}

// NewInterceptor creates an interceptor over the given directory store.
func NewInterceptor(workdirs *session.WorkdirStore, profile shell.OSProfile, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		workdirs: workdirs,
		profile:  profile,
		logger:   logger.With("component", "intercept"),
	}
}

// Intercept inspects raw for a leading directory change.
//
// Outcomes:
//   - not a directory change: residual carries the trimmed instruction,
//     ack is empty, the caller executes it
//   - directory change with a compound remainder (cd x && ls): the change
//     is applied and residual carries the remainder to run in the new
//     directory
//   - bare change or change without remainder: ack carries the user-facing
//     acknowledgement (or failure message) and nothing is executed
//   - empty input: both results empty
//
// A failed change is terminal for the whole instruction; the remainder
// after a failed cd is never returned for execution.
func (it *Interceptor) Intercept(key session.Key, raw string) (residual, ack string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ""
	}

	changeRe, bareRe := unixChangeRe, unixBareRe
	if it.profile.Windows() {
		changeRe, bareRe = windowsChangeRe, windowsBareRe
	}

	m := changeRe.FindStringSubmatch(text)
	if m == nil {
		if bareRe.MatchString(text) {
			return "", it.apply(key, it.workdirs.Root())
		}
		return text, ""
	}

	pathArg := strings.TrimSpace(m[1])
	pathArg = strings.Trim(pathArg, `"`)
	pathArg = strings.Trim(pathArg, "'")
	remainder := strings.TrimSpace(m[2])

	target := it.ResolveTarget(key, pathArg)
	newDir, err := it.workdirs.Set(key, target)
	if err != nil {
		return "", fmt.Sprintf("Failed to change directory: %v", err)
	}
	it.logger.Debug("changed directory", "key", key, "dir", newDir)

	if remainder != "" {
		return remainder, ""
	}
	return "", fmt.Sprintf("Changed directory to `%s`", it.workdirs.Rel(newDir))
}

// ResolveTarget resolves a change-directory argument the way a shell
// would: empty goes home to the sandbox root, absolute paths stand alone,
// and relative paths join the session's current directory.
func (it *Interceptor) ResolveTarget(key session.Key, arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return it.workdirs.Root()
	}
	if filepath.IsAbs(arg) {
		return filepath.Clean(arg)
	}
	return filepath.Join(it.workdirs.Get(key), arg)
}

// apply sets the directory and renders the resulting message.
func (it *Interceptor) apply(key session.Key, target string) string {
	newDir, err := it.workdirs.Set(key, target)
	if err != nil {
		return fmt.Sprintf("Failed to change directory: %v", err)
	}
	it.logger.Debug("changed directory", "key", key, "dir", newDir)
	return fmt.Sprintf("Changed directory to `%s`", it.workdirs.Rel(newDir))
}
