package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func openTestStorage(t *testing.T) *SQLiteJobStorage {
	t.Helper()
	storage, err := OpenSQLiteJobStorage(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

func nopHandler(ctx context.Context, job *Job) error { return nil }

func TestSchedulerAddRemove(t *testing.T) {
	s := New(openTestStorage(t), nopHandler, testLogger())

	job := &Job{Name: "disk", Schedule: "@hourly", Command: "df -h", SessionKey: "123"}
	if err := s.Add(job); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if job.ID == "" {
		t.Error("expected a generated job ID")
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	t.Run("duplicate ID is rejected", func(t *testing.T) {
		dup := &Job{ID: job.ID, Schedule: "@daily", Command: "ls"}
		if err := s.Add(dup); err == nil {
			t.Error("expected error for duplicate job ID")
		}
	})

	t.Run("schedule and command are required", func(t *testing.T) {
		if err := s.Add(&Job{Command: "ls"}); err == nil {
			t.Error("expected error for missing schedule")
		}
		if err := s.Add(&Job{Schedule: "@daily"}); err == nil {
			t.Error("expected error for missing command")
		}
	})

	if err := s.Remove(job.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Remove(job.ID); err == nil {
		t.Error("expected error removing unknown job")
	}
}

func TestSchedulerEnableDisable(t *testing.T) {
	s := New(openTestStorage(t), nopHandler, testLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	job := &Job{Schedule: "@daily", Command: "uptime", Enabled: true}
	if err := s.Add(job); err != nil {
		t.Fatal(err)
	}

	if err := s.Disable(job.ID); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	got, ok := s.Get(job.ID)
	if !ok || got.Enabled {
		t.Error("expected job to be disabled but still registered")
	}

	if err := s.Enable(job.ID); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	got, _ = s.Get(job.ID)
	if !got.Enabled {
		t.Error("expected job to be enabled")
	}
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := New(openTestStorage(t), nopHandler, testLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	err := s.Add(&Job{Schedule: "not a cron expr", Command: "ls", Enabled: true})
	if err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestSchedulerNextRun(t *testing.T) {
	s := New(openTestStorage(t), nopHandler, testLogger())

	if !s.NextRun("nope").IsZero() {
		t.Error("expected zero next run before start")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	job := &Job{Schedule: "@hourly", Command: "ls", Enabled: true}
	if err := s.Add(job); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if s.NextRun(job.ID).IsZero() {
		t.Error("expected a next run time for an enabled job")
	}
	if !s.NextRun("unknown").IsZero() {
		t.Error("expected zero next run for unknown job")
	}
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	storage := openTestStorage(t)

	lastRun := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &Job{
		ID:         "job-1",
		Name:       "cleanup",
		Schedule:   "0 3 * * *",
		Command:    "rm -rf tmp/*",
		SessionKey: "456",
		Enabled:    true,
		CreatedAt:  time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
		LastRunAt:  &lastRun,
		LastError:  "exit 1",
		RunCount:   7,
	}
	if err := storage.Save(job); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	jobs, err := storage.LoadAll()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	got := jobs[0]
	if got.ID != job.ID || got.Name != job.Name || got.Schedule != job.Schedule ||
		got.Command != job.Command || got.SessionKey != job.SessionKey ||
		got.Enabled != job.Enabled || got.LastError != job.LastError ||
		got.RunCount != job.RunCount {
		t.Errorf("round trip mismatch: %+v != %+v", got, job)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("created_at mismatch: %v != %v", got.CreatedAt, job.CreatedAt)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(lastRun) {
		t.Errorf("last_run_at mismatch: %v != %v", got.LastRunAt, lastRun)
	}

	t.Run("save is an upsert", func(t *testing.T) {
		job.RunCount = 8
		if err := storage.Save(job); err != nil {
			t.Fatal(err)
		}
		jobs, err := storage.LoadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 1 || jobs[0].RunCount != 8 {
			t.Errorf("expected updated run count, got %+v", jobs)
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		if err := storage.Delete(job.ID); err != nil {
			t.Fatal(err)
		}
		jobs, err := storage.LoadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 0 {
			t.Errorf("expected no jobs, got %d", len(jobs))
		}
	})
}
