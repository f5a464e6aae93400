package session

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "snap.json")
	m := map[string]string{
		"123456": "/srv/work/project",
		"789":    "/srv/work",
	}

	if err := SaveSnapshot(path, m); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got := LoadSnapshot(path)
	if !reflect.DeepEqual(got, m) {
		t.Errorf("expected %v, got %v", m, got)
	}
}

func TestLoadSnapshot(t *testing.T) {
	t.Run("missing file yields empty map", func(t *testing.T) {
		got := LoadSnapshot(filepath.Join(t.TempDir(), "absent.json"))
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	t.Run("malformed JSON yields empty map", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if got := LoadSnapshot(path); len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	t.Run("wrong shape yields empty map", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wrong.json")
		if err := os.WriteFile(path, []byte(`{"k": 42}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if got := LoadSnapshot(path); len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})
}

func TestSaveSnapshotFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	if err := SaveSnapshot(path, map[string]string{"1": "a"}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "  \"1\": \"a\"") {
		t.Errorf("expected two-space indented JSON, got %q", string(data))
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temporary file to be renamed away")
	}
}
