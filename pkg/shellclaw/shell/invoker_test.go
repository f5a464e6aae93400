//go:build !windows

package shell

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func testInvoker(t *testing.T) *Invoker {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewInvoker(Resolve(), logger)
}

func TestInvoke(t *testing.T) {
	inv := testInvoker(t)
	ctx := context.Background()

	t.Run("captures stdout", func(t *testing.T) {
		res, err := inv.Invoke(ctx, "echo hello", t.TempDir(), 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExitCode != 0 {
			t.Errorf("expected exit 0, got %d", res.ExitCode)
		}
		if strings.TrimSpace(res.Stdout) != "hello" {
			t.Errorf("expected stdout 'hello', got %q", res.Stdout)
		}
		if res.Command != "echo hello" {
			t.Errorf("expected command echoed back, got %q", res.Command)
		}
	})

	t.Run("captures stderr separately", func(t *testing.T) {
		res, err := inv.Invoke(ctx, "echo oops >&2", t.TempDir(), 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(res.Stderr) != "oops" {
			t.Errorf("expected stderr 'oops', got %q", res.Stderr)
		}
		if res.Stdout != "" {
			t.Errorf("expected empty stdout, got %q", res.Stdout)
		}
	})

	t.Run("reports nonzero exit code", func(t *testing.T) {
		res, err := inv.Invoke(ctx, "exit 3", t.TempDir(), 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("expected exit 3, got %d", res.ExitCode)
		}
	})

	t.Run("runs in the given working directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		res, err := inv.Invoke(ctx, "ls", dir, 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(res.Stdout, "marker.txt") {
			t.Errorf("expected listing of %s, got %q", dir, res.Stdout)
		}
	})

	t.Run("missing working directory is a spawn failure", func(t *testing.T) {
		_, err := inv.Invoke(ctx, "echo hi", "/nonexistent/dir/for/test", 10*time.Second)
		if err == nil {
			t.Fatal("expected error for missing working directory")
		}
	})

	t.Run("replaces invalid output bytes", func(t *testing.T) {
		res, err := inv.Invoke(ctx, `printf 'a\xffb'`, t.TempDir(), 10*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !utf8.ValidString(res.Stdout) {
			t.Errorf("expected valid UTF-8, got %q", res.Stdout)
		}
		if !strings.Contains(res.Stdout, "a") || !strings.Contains(res.Stdout, "b") {
			t.Errorf("expected surrounding bytes preserved, got %q", res.Stdout)
		}
	})
}

func TestInvokeTimeout(t *testing.T) {
	inv := testInvoker(t)
	ctx := context.Background()

	start := time.Now()
	res, err := inv.Invoke(ctx, "sleep 5", t.TempDir(), 300*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("timeout must be a synthetic result, got error: %v", err)
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("expected exit %d, got %d", TimeoutExitCode, res.ExitCode)
	}
	if res.Stdout != "" {
		t.Errorf("expected empty stdout, got %q", res.Stdout)
	}
	if res.Stderr != "Command timed out" {
		t.Errorf("expected fixed timeout message, got %q", res.Stderr)
	}
	if elapsed > 3*time.Second {
		t.Errorf("expected return close to the deadline, took %v", elapsed)
	}
}

func TestInvokeTimeoutKillsChildren(t *testing.T) {
	inv := testInvoker(t)
	dir := t.TempDir()

	// The background child would write the marker after the deadline if it
	// survived the group kill.
	cmd := "(sleep 1 && echo alive > marker) & sleep 5"
	if _, err := inv.Invoke(context.Background(), cmd, dir, 300*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(1200 * time.Millisecond)
	if _, err := os.Stat(filepath.Join(dir, "marker")); !os.IsNotExist(err) {
		t.Error("expected background child to be killed with the group")
	}
}
