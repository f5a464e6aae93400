package config

import (
	"path/filepath"
	"sort"
	"testing"
)

func newTestVault(t *testing.T, password string) *Vault {
	t.Helper()
	v := NewVault(filepath.Join(t.TempDir(), "test.vault"))
	if err := v.Create(password); err != nil {
		t.Fatalf("creating vault: %v", err)
	}
	return v
}

func TestVaultRoundTrip(t *testing.T) {
	v := newTestVault(t, "hunter2")

	if err := v.Set(KeyDiscordToken, "tok-abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := v.Set(KeyGeminiAPIKey, "key-xyz"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := v.Get(KeyDiscordToken)
	if err != nil || got != "tok-abc" {
		t.Errorf("get = %q, %v", got, err)
	}

	t.Run("missing name yields empty, no error", func(t *testing.T) {
		got, err := v.Get("nonexistent")
		if err != nil || got != "" {
			t.Errorf("get = %q, %v", got, err)
		}
	})

	t.Run("list hides internal entries", func(t *testing.T) {
		names := v.List()
		sort.Strings(names)
		if len(names) != 2 || names[0] != KeyDiscordToken || names[1] != KeyGeminiAPIKey {
			t.Errorf("list = %v", names)
		}
	})

	t.Run("survives lock and unlock", func(t *testing.T) {
		v.Lock()
		if _, err := v.Get(KeyDiscordToken); err == nil {
			t.Error("expected error reading a locked vault")
		}
		if err := v.Unlock("hunter2"); err != nil {
			t.Fatalf("unlock failed: %v", err)
		}
		got, err := v.Get(KeyDiscordToken)
		if err != nil || got != "tok-abc" {
			t.Errorf("get after unlock = %q, %v", got, err)
		}
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		if err := v.Delete(KeyGeminiAPIKey); err != nil {
			t.Fatal(err)
		}
		got, err := v.Get(KeyGeminiAPIKey)
		if err != nil || got != "" {
			t.Errorf("get after delete = %q, %v", got, err)
		}
	})
}

func TestVaultWrongPassword(t *testing.T) {
	v := newTestVault(t, "correct")
	if err := v.Set("secret", "value"); err != nil {
		t.Fatal(err)
	}
	v.Lock()

	if err := v.Unlock("incorrect"); err == nil {
		t.Error("expected unlock to fail with the wrong password")
	}
	if v.IsUnlocked() {
		t.Error("vault must stay locked after a failed unlock")
	}
}

func TestVaultCreateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.vault")
	if err := NewVault(path).Create("pw"); err != nil {
		t.Fatal(err)
	}
	if err := NewVault(path).Create("pw"); err == nil {
		t.Error("expected error creating over an existing vault")
	}
}
