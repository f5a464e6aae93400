package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/session"
	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func unixProfile() shell.OSProfile {
	return shell.OSProfile{Family: shell.FamilyUnix, Name: "Linux", Shell: "/bin/bash"}
}

func windowsProfile() shell.OSProfile {
	return shell.OSProfile{Family: shell.FamilyWindows, Name: "Windows", Shell: "powershell"}
}

func newTestInterceptor(t *testing.T, profile shell.OSProfile) (*Interceptor, *session.WorkdirStore) {
	t.Helper()
	store, err := session.NewWorkdirStore(t.TempDir(), "", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewInterceptor(store, profile, testLogger()), store
}

func TestInterceptUnix(t *testing.T) {
	t.Run("cd with compound remainder", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "cd sub && ls")
		if residual != "ls" {
			t.Errorf("expected residual 'ls', got %q", residual)
		}
		if ack != "" {
			t.Errorf("expected no ack, got %q", ack)
		}
		if got := store.Get("chan"); got != filepath.Join(store.Root(), "sub") {
			t.Errorf("expected directory updated to sub, got %q", got)
		}
	})

	t.Run("cd with semicolon remainder", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "cd sub; pwd")
		if residual != "pwd" || ack != "" {
			t.Errorf("expected residual 'pwd', got (%q, %q)", residual, ack)
		}
	})

	t.Run("cd without remainder acknowledges", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "cd sub")
		if residual != "" {
			t.Errorf("expected no residual, got %q", residual)
		}
		if ack != "Changed directory to `sub`" {
			t.Errorf("unexpected ack %q", ack)
		}
	})

	t.Run("bare cd resets to root", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Set("chan", filepath.Join(store.Root(), "sub")); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "cd")
		if residual != "" {
			t.Errorf("expected no residual, got %q", residual)
		}
		if ack != "Changed directory to `.`" {
			t.Errorf("unexpected ack %q", ack)
		}
		if got := store.Get("chan"); got != store.Root() {
			t.Errorf("expected root, got %q", got)
		}
	})

	t.Run("quoted path argument", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "my dir"), 0o755); err != nil {
			t.Fatal(err)
		}

		_, ack := it.Intercept("chan", `cd "my dir"`)
		if !strings.Contains(ack, "my dir") {
			t.Errorf("expected change into quoted dir, got %q", ack)
		}
	})

	t.Run("failed cd is terminal for the instruction", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "cd ghost && rm -rf /")
		if residual != "" {
			t.Errorf("remainder after failed cd must not run, got %q", residual)
		}
		if !strings.HasPrefix(ack, "Failed to change directory:") {
			t.Errorf("expected failure message, got %q", ack)
		}
		if got := store.Get("chan"); got != store.Root() {
			t.Errorf("expected directory unchanged, got %q", got)
		}
	})

	t.Run("escape attempt is rejected", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "cd ../..")
		if residual != "" || !strings.HasPrefix(ack, "Failed to change directory:") {
			t.Errorf("expected rejection, got (%q, %q)", residual, ack)
		}
		if got := store.Get("chan"); got != store.Root() {
			t.Errorf("expected directory unchanged, got %q", got)
		}
	})

	t.Run("dotdot toward root is allowed", func(t *testing.T) {
		it, store := newTestInterceptor(t, unixProfile())
		sub := filepath.Join(store.Root(), "sub")
		if err := os.Mkdir(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Set("chan", sub); err != nil {
			t.Fatal(err)
		}

		_, ack := it.Intercept("chan", "cd ..")
		if ack != "Changed directory to `.`" {
			t.Errorf("expected move back to root, got %q", ack)
		}
	})

	t.Run("non-cd passes through", func(t *testing.T) {
		it, _ := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "  ls -la  ")
		if residual != "ls -la" || ack != "" {
			t.Errorf("expected trimmed passthrough, got (%q, %q)", residual, ack)
		}
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		it, _ := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "   ")
		if residual != "" || ack != "" {
			t.Errorf("expected nothing, got (%q, %q)", residual, ack)
		}
	})

	t.Run("unix does not recognize Set-Location", func(t *testing.T) {
		it, _ := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "Set-Location sub")
		if residual != "Set-Location sub" || ack != "" {
			t.Errorf("expected passthrough, got (%q, %q)", residual, ack)
		}
	})

	t.Run("cd prefix of another command passes through", func(t *testing.T) {
		it, _ := newTestInterceptor(t, unixProfile())

		residual, ack := it.Intercept("chan", "cdrecord image.iso")
		if residual != "cdrecord image.iso" || ack != "" {
			t.Errorf("expected passthrough, got (%q, %q)", residual, ack)
		}
	})
}

func TestInterceptWindows(t *testing.T) {
	t.Run("Set-Location recognized case-insensitively", func(t *testing.T) {
		it, store := newTestInterceptor(t, windowsProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "set-location sub")
		if residual != "" {
			t.Errorf("expected no residual, got %q", residual)
		}
		if ack != "Changed directory to `sub`" {
			t.Errorf("unexpected ack %q", ack)
		}
	})

	t.Run("bare Set-Location resets to root", func(t *testing.T) {
		it, store := newTestInterceptor(t, windowsProfile())

		residual, ack := it.Intercept("chan", "Set-Location")
		if residual != "" || ack != "Changed directory to `.`" {
			t.Errorf("expected root ack, got (%q, %q)", residual, ack)
		}
		if got := store.Get("chan"); got != store.Root() {
			t.Errorf("expected root, got %q", got)
		}
	})

	t.Run("cd also works on windows", func(t *testing.T) {
		it, store := newTestInterceptor(t, windowsProfile())
		if err := os.Mkdir(filepath.Join(store.Root(), "sub"), 0o755); err != nil {
			t.Fatal(err)
		}

		residual, ack := it.Intercept("chan", "CD sub && Get-ChildItem")
		if residual != "Get-ChildItem" || ack != "" {
			t.Errorf("expected residual Get-ChildItem, got (%q, %q)", residual, ack)
		}
	})
}
