// Package session – snapshot.go reads and writes the flat JSON snapshots
// backing the session stores.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSnapshot reads a string-to-string snapshot from path. Any failure
// (missing file, unreadable, malformed JSON, wrong shape) yields an empty
// map; startup never depends on a healthy snapshot.
func LoadSnapshot(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]string{}
	}
	if m == nil {
		return map[string]string{}
	}
	return m
}

// SaveSnapshot writes the snapshot atomically: the full map goes to a
// temporary file in the target directory, then replaces path in one
// rename. Concurrent readers never observe a partial write.
func SaveSnapshot(path string, data map[string]string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("session: creating snapshot dir: %w", err)
		}
	}

	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("session: writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("session: replacing snapshot: %w", err)
	}
	return nil
}
