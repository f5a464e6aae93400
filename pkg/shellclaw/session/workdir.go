// Package session – workdir.go holds the per-session working directory
// store with sandbox containment.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrOutOfSandbox marks a directory that resolves outside the root.
	ErrOutOfSandbox = errors.New("path escapes the sandbox root")

	// ErrNotADirectory marks a path that does not exist as a directory.
	ErrNotADirectory = errors.New("not a directory")
)

// WorkdirStore maps session keys to working directories under a single
// sandbox root. Unset sessions resolve to the root itself.
type WorkdirStore struct {
	mu     sync.Mutex
	root   string
	path   string // snapshot location, empty disables persistence
	dirs   map[Key]string
	logger *slog.Logger
}

// NewWorkdirStore creates the store rooted at root and restores the
// snapshot at snapshotPath. Persisted entries that now violate containment
// or no longer exist as directories are dropped silently; the store
// self-heals toward a consistent state on startup.
func NewWorkdirStore(root, snapshotPath string, logger *slog.Logger) (*WorkdirStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("session: resolving sandbox root: %w", err)
	}

	s := &WorkdirStore{
		root:   absRoot,
		path:   snapshotPath,
		dirs:   make(map[Key]string),
		logger: logger.With("component", "workdir"),
	}

	if snapshotPath != "" {
		for k, v := range LoadSnapshot(snapshotPath) {
			abs, err := filepath.Abs(v)
			if err != nil {
				continue
			}
			if !WithinRoot(absRoot, abs) || !isDir(abs) {
				s.logger.Debug("dropping stale session directory", "key", k, "dir", v)
				continue
			}
			s.dirs[Key(k)] = abs
		}
	}
	return s, nil
}

// Root returns the sandbox root.
func (s *WorkdirStore) Root() string { return s.root }

// Get returns the working directory for key, or the root when unset.
func (s *WorkdirStore) Get(key Key) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dirs[key]; ok {
		return d
	}
	return s.root
}

// Set resolves candidate to an absolute path, validates it against the
// sandbox, stores it for key, and writes the snapshot through. The
// resolved path is returned on success.
func (s *WorkdirStore) Set(key Key, candidate string) (string, error) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("session: resolving %q: %w", candidate, err)
	}
	if !WithinRoot(s.root, abs) {
		return "", ErrOutOfSandbox
	}
	if !isDir(abs) {
		return "", ErrNotADirectory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[key] = abs
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	return abs, nil
}

// Rel renders p relative to the sandbox root for user-facing messages.
func (s *WorkdirStore) Rel(p string) string {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return p
	}
	return rel
}

func (s *WorkdirStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data := make(map[string]string, len(s.dirs))
	for k, v := range s.dirs {
		data[string(k)] = v
	}
	if err := SaveSnapshot(s.path, data); err != nil {
		return fmt.Errorf("session: persisting working directories: %w", err)
	}
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
