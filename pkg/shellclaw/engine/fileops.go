// Package engine – fileops.go provides sandboxed file access for the
// chat file-editing surface.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
)

// ErrIsDirectory marks a file operation aimed at a directory.
var ErrIsDirectory = errors.New("path is a directory")

// FileOps reads and writes files inside the sandbox root. Paths are given
// relative to the root; anything resolving outside it is rejected.
type FileOps struct {
	root string
}

// NewFileOps creates file operations rooted at root.
func NewFileOps(root string) (*FileOps, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("engine: resolving file root: %w", err)
	}
	return &FileOps{root: abs}, nil
}

// Resolve maps rel onto an absolute path inside the sandbox.
func (f *FileOps) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Join(f.root, rel)
	}
	if !session.WithinRoot(f.root, abs) {
		return "", session.ErrOutOfSandbox
	}
	return abs, nil
}

// Write stores content at rel, creating parent directories as needed.
// Returns the number of bytes written.
func (f *FileOps) Write(rel, content string) (int, error) {
	abs, err := f.Resolve(rel)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return 0, fmt.Errorf("engine: creating parent dirs: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("engine: writing %s: %w", rel, err)
	}
	return len(content), nil
}

// ReadCapped returns at most limit bytes of the file at rel and reports
// whether content was left behind. Invalid byte sequences are replaced so
// the result is safe for chat transport.
func (f *FileOps) ReadCapped(rel string, limit int) (string, bool, error) {
	abs, err := f.Resolve(rel)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, ErrIsDirectory
	}

	file, err := os.Open(abs)
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(limit)+1))
	if err != nil {
		return "", false, fmt.Errorf("engine: reading %s: %w", rel, err)
	}

	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}
	return strings.ToValidUTF8(string(data), "�"), truncated, nil
}
