// Package session – mode.go holds the per-session instruction mode store.
package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// Mode selects how inbound messages are interpreted for a session.
type Mode string

const (
	// ModeCommand executes messages verbatim as shell instructions.
	ModeCommand Mode = "command"

	// ModeChat translates messages to a command plan via the oracle.
	ModeChat Mode = "chat"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCommand, ModeChat:
		return Mode(s), nil
	}
	return "", fmt.Errorf("session: unknown mode %q", s)
}

// ModeStore maps session keys to instruction modes. Unset sessions resolve
// to the configured default.
type ModeStore struct {
	mu     sync.Mutex
	def    Mode
	path   string // snapshot location, empty disables persistence
	modes  map[Key]Mode
	logger *slog.Logger
}

// NewModeStore creates the store with def as the fallback mode and
// restores the snapshot at snapshotPath. Entries with an unknown mode are
// dropped at load, mirroring the directory store's reconciliation.
func NewModeStore(def Mode, snapshotPath string, logger *slog.Logger) *ModeStore {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := ParseMode(string(def)); err != nil {
		def = ModeCommand
	}

	s := &ModeStore{
		def:    def,
		path:   snapshotPath,
		modes:  make(map[Key]Mode),
		logger: logger.With("component", "modes"),
	}

	if snapshotPath != "" {
		for k, v := range LoadSnapshot(snapshotPath) {
			mode, err := ParseMode(v)
			if err != nil {
				s.logger.Debug("dropping unknown session mode", "key", k, "mode", v)
				continue
			}
			s.modes[Key(k)] = mode
		}
	}
	return s
}

// Default returns the fallback mode for unset sessions.
func (s *ModeStore) Default() Mode { return s.def }

// Get returns the mode for key, or the default when unset.
func (s *ModeStore) Get(key Key) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modes[key]; ok {
		return m
	}
	return s.def
}

// Set stores the mode for key and writes the snapshot through.
func (s *ModeStore) Set(key Key, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[key] = mode
	if s.path == "" {
		return nil
	}
	data := make(map[string]string, len(s.modes))
	for k, v := range s.modes {
		data[string(k)] = string(v)
	}
	if err := SaveSnapshot(s.path, data); err != nil {
		return fmt.Errorf("session: persisting modes: %w", err)
	}
	return nil
}
