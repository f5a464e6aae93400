// Package scheduler runs shell commands on cron schedules through the
// execution engine. Jobs persist in SQLite and survive restarts; each
// trigger executes the job's command as a single-step plan in the job's
// session, so scheduled commands honor the same sandbox and timeout rules
// as interactive ones.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions plus descriptors like
// @daily, for both triggering and next-run computation.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job represents a scheduled shell command.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable label.
	Name string `json:"name" yaml:"name"`

	// Schedule is the cron expression or shorthand.
	// Supports standard 5-field cron and descriptors like @daily, @hourly.
	Schedule string `json:"schedule" yaml:"schedule"`

	// Command is the shell instruction executed on trigger.
	Command string `json:"command" yaml:"command"`

	// SessionKey is the conversation whose working directory the command
	// runs in, and where reports are delivered when a channel is attached.
	SessionKey string `json:"session_key" yaml:"session_key"`

	// Enabled indicates whether the job is scheduled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// LastRunAt is the last execution timestamp.
	LastRunAt *time.Time `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`

	// LastError contains the error from the last run, if any.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`

	// RunCount tracks how many times the job has executed.
	RunCount int `json:"run_count" yaml:"run_count"`
}

// JobHandler is called when a job fires. It executes the job's command
// and returns an error only when execution could not be attempted at all;
// command failures are part of the job's report, not handler errors.
type JobHandler func(ctx context.Context, job *Job) error

// JobStorage defines the persistence interface for jobs.
type JobStorage interface {
	Save(job *Job) error
	Delete(id string) error
	LoadAll() ([]*Job, error)
}

// Scheduler manages scheduled jobs using cron expressions.
type Scheduler struct {
	jobs map[string]*Job

	// cron is the trigger source; cronIDs maps job IDs to entries for
	// removal.
	cron    *cron.Cron
	cronIDs map[string]cron.EntryID

	// running tracks in-flight jobs so a slow run is never doubled by the
	// next trigger.
	running map[string]bool

	storage JobStorage
	handler JobHandler

	// jobTimeout caps a single execution. Defaults to 5 minutes.
	jobTimeout time.Duration

	logger *slog.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler with the given storage and handler.
func New(storage JobStorage, handler JobHandler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:       make(map[string]*Job),
		cronIDs:    make(map[string]cron.EntryID),
		running:    make(map[string]bool),
		storage:    storage,
		handler:    handler,
		jobTimeout: 5 * time.Minute,
		logger:     logger.With("component", "scheduler"),
	}
}

// Add registers a new job. A missing ID is generated.
func (s *Scheduler) Add(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("scheduler: job %q already exists", job.ID)
	}
	if job.Schedule == "" {
		return fmt.Errorf("scheduler: job schedule is required")
	}
	if job.Command == "" {
		return fmt.Errorf("scheduler: job command is required")
	}

	job.CreatedAt = time.Now()

	if s.cron != nil && job.Enabled {
		if err := s.scheduleLocked(job); err != nil {
			return fmt.Errorf("scheduler: invalid schedule %q: %w", job.Schedule, err)
		}
	}

	s.jobs[job.ID] = job
	s.persistLocked(job)

	s.logger.Info("job added", "id", job.ID, "schedule", job.Schedule, "command", job.Command)
	return nil
}

// Remove deletes a job by ID.
func (s *Scheduler) Remove(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobID]; !exists {
		return fmt.Errorf("scheduler: job %q not found", jobID)
	}

	s.unscheduleLocked(jobID)
	delete(s.jobs, jobID)

	if s.storage != nil {
		if err := s.storage.Delete(jobID); err != nil {
			s.logger.Error("failed to remove job from storage", "id", jobID, "error", err)
		}
	}

	s.logger.Info("job removed", "id", jobID)
	return nil
}

// Enable schedules a disabled job.
func (s *Scheduler) Enable(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("scheduler: job %q not found", jobID)
	}
	if job.Enabled {
		return nil
	}

	job.Enabled = true
	if s.cron != nil {
		if err := s.scheduleLocked(job); err != nil {
			job.Enabled = false
			return fmt.Errorf("scheduler: invalid schedule %q: %w", job.Schedule, err)
		}
	}
	s.persistLocked(job)
	return nil
}

// Disable keeps a job registered but stops scheduling it.
func (s *Scheduler) Disable(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("scheduler: job %q not found", jobID)
	}
	if !job.Enabled {
		return nil
	}

	job.Enabled = false
	s.unscheduleLocked(jobID)
	s.persistLocked(job)
	return nil
}

// List returns all registered jobs.
func (s *Scheduler) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	return result
}

// Get returns a job by ID.
func (s *Scheduler) Get(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	return j, ok
}

// NextRun returns the next trigger time for an enabled job, computed
// from its cron expression. The zero time is returned for unknown or
// disabled jobs.
func (s *Scheduler) NextRun(jobID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok || !job.Enabled {
		return time.Time{}
	}
	sched, err := cronParser.Parse(job.Schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// Start initializes the cron scheduler and loads persisted jobs.
// Disabled jobs stay registered but receive no cron entry.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithParser(cronParser))

	if s.storage != nil {
		jobs, err := s.storage.LoadAll()
		if err != nil {
			s.logger.Error("failed to load jobs", "error", err)
		} else {
			s.mu.Lock()
			for _, job := range jobs {
				s.jobs[job.ID] = job
				if job.Enabled {
					if err := s.scheduleLocked(job); err != nil {
						s.logger.Warn("skipping job with invalid schedule",
							"id", job.ID, "schedule", job.Schedule, "error", err)
					}
				}
			}
			s.mu.Unlock()
			s.logger.Info("jobs loaded from storage", "count", len(jobs))
		}
	}

	s.cron.Start()

	s.mu.RLock()
	jobCount := len(s.jobs)
	s.mu.RUnlock()
	s.logger.Info("scheduler started", "jobs", jobCount)
	return nil
}

// Stop gracefully shuts down the scheduler, waiting briefly for running
// jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
			s.logger.Warn("scheduler stop timed out")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

// ---------- Internal ----------

// scheduleLocked registers a job with cron. Caller holds s.mu.
func (s *Scheduler) scheduleLocked(job *Job) error {
	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.fire(jobID)
	})
	if err != nil {
		return err
	}
	s.cronIDs[jobID] = entryID
	return nil
}

// unscheduleLocked removes a job's cron entry if present. Caller holds s.mu.
func (s *Scheduler) unscheduleLocked(jobID string) {
	if entryID, ok := s.cronIDs[jobID]; ok {
		s.cron.Remove(entryID)
		delete(s.cronIDs, jobID)
	}
}

// persistLocked writes a job through to storage. Caller holds s.mu.
func (s *Scheduler) persistLocked(job *Job) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Save(job); err != nil {
		s.logger.Error("failed to persist job", "id", job.ID, "error", err)
	}
}

// fire executes one trigger of a job. Overlapping triggers of the same
// job are skipped while a run is still in flight.
func (s *Scheduler) fire(jobID string) {
	s.mu.Lock()
	job, exists := s.jobs[jobID]
	if !exists || !job.Enabled {
		s.mu.Unlock()
		return
	}
	if s.running[jobID] {
		s.mu.Unlock()
		s.logger.Warn("skipping trigger, previous run still active", "id", jobID)
		return
	}
	s.running[jobID] = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	s.logger.Info("job fired", "id", jobID, "command", job.Command)
	err := s.handler(ctx, job)

	now := time.Now()
	s.mu.Lock()
	delete(s.running, jobID)
	job.LastRunAt = &now
	job.RunCount++
	if err != nil {
		job.LastError = err.Error()
		s.logger.Error("job run failed", "id", jobID, "error", err)
	} else {
		job.LastError = ""
	}
	s.persistLocked(job)
	s.mu.Unlock()
}
