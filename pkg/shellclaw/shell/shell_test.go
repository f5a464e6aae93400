package shell

import (
	"reflect"
	"testing"
)

func TestResolveGOOS(t *testing.T) {
	tests := []struct {
		goos   string
		family Family
		name   string
		shell  string
	}{
		{"linux", FamilyUnix, "Linux", "/bin/bash"},
		{"darwin", FamilyUnix, "Darwin", "/bin/bash"},
		{"windows", FamilyWindows, "Windows", "powershell"},
		{"freebsd", FamilyUnix, "Linux", "/bin/bash"},
		{"plan9", FamilyUnix, "Linux", "/bin/bash"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p := resolveGOOS(tt.goos)
			if p.Family != tt.family {
				t.Errorf("expected family %q, got %q", tt.family, p.Family)
			}
			if p.Name != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, p.Name)
			}
			if p.Shell != tt.shell {
				t.Errorf("expected shell %q, got %q", tt.shell, p.Shell)
			}
		})
	}
}

func TestProfileArgs(t *testing.T) {
	t.Run("unix wraps with -lc", func(t *testing.T) {
		p := resolveGOOS("linux")
		got := p.Args("ls -la")
		want := []string{"/bin/bash", "-lc", "ls -la"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("windows wraps with powershell flags", func(t *testing.T) {
		p := resolveGOOS("windows")
		got := p.Args("Get-ChildItem")
		want := []string{"powershell", "-NoLogo", "-NoProfile", "-Command", "Get-ChildItem"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("windows predicate follows family", func(t *testing.T) {
		if resolveGOOS("linux").Windows() {
			t.Error("linux profile should not be windows")
		}
		if !resolveGOOS("windows").Windows() {
			t.Error("windows profile should be windows")
		}
	})
}
