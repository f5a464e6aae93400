// Package session tracks per-conversation state for the execution engine.
//
// Two independent stores live here, both persisted as flat JSON snapshots
// and reloaded at startup:
//
//   - WorkdirStore: session key → working directory, constrained to the
//     sandbox root
//   - ModeStore: session key → instruction mode (command or chat)
//
// Every mutation is written through synchronously with atomic replace
// semantics, so a crash never leaves a partially written snapshot behind.
package session

import (
	"path/filepath"
	"strings"
)

// Key identifies a conversation context. Threads use their parent
// channel's key so state is shared across a thread and its parent.
type Key string

// WithinRoot reports whether abs is root itself or a descendant of it.
// Both paths must be absolute and cleaned. A sibling that merely shares
// root as a string prefix does not qualify.
func WithinRoot(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
