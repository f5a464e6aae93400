// Package shell turns instruction strings into bounded subprocess runs.
//
// It provides the three leaf pieces of the execution engine:
//
//   - OSProfile: host platform detection and the shell invocation shape
//     (bash -lc on unix, powershell -NoLogo -NoProfile -Command on Windows)
//   - Invoker: one subprocess per call with a hard wall-clock deadline,
//     process-group kill on expiry, and a synthetic exit-124 result
//   - Summarize: head/tail truncation of oversized output for transport
//
// The package owns no session state; callers supply the working directory
// for every invocation.
package shell

import "runtime"

// Family groups operating systems by shell syntax.
type Family string

const (
	// FamilyUnix covers Linux, macOS, and anything else that runs bash.
	FamilyUnix Family = "unix"

	// FamilyWindows covers Windows PowerShell hosts.
	FamilyWindows Family = "windows"
)

// OSProfile describes how the host platform runs a shell command.
// Immutable; computed once per process via Resolve.
type OSProfile struct {
	// Family selects the command syntax (cd vs Set-Location, etc).
	Family Family

	// Name is the human-readable OS name used in reports
	// ("Windows", "Darwin", "Linux").
	Name string

	// Shell is the shell executable.
	Shell string
}

// Args returns the argument vector that runs command through the shell.
func (p OSProfile) Args(command string) []string {
	if p.Family == FamilyWindows {
		return []string{p.Shell, "-NoLogo", "-NoProfile", "-Command", command}
	}
	return []string{p.Shell, "-lc", command}
}

// Windows reports whether the profile belongs to the windows family.
func (p OSProfile) Windows() bool { return p.Family == FamilyWindows }

// Resolve returns the profile for the host platform.
func Resolve() OSProfile {
	return resolveGOOS(runtime.GOOS)
}

// resolveGOOS maps a GOOS value to a profile. Unrecognized platforms are
// treated as unix with /bin/bash.
func resolveGOOS(goos string) OSProfile {
	switch goos {
	case "windows":
		return OSProfile{Family: FamilyWindows, Name: "Windows", Shell: "powershell"}
	case "darwin":
		return OSProfile{Family: FamilyUnix, Name: "Darwin", Shell: "/bin/bash"}
	case "linux":
		return OSProfile{Family: FamilyUnix, Name: "Linux", Shell: "/bin/bash"}
	default:
		return OSProfile{Family: FamilyUnix, Name: "Linux", Shell: "/bin/bash"}
	}
}

// Result is the outcome of a single shell invocation.
type Result struct {
	// Command is the instruction that was executed.
	Command string

	// ExitCode is the process exit status. 124 marks a timeout.
	ExitCode int

	// Stdout and Stderr hold the decoded output streams. Invalid byte
	// sequences are replaced, never propagated.
	Stdout string
	Stderr string
}
