package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"yieldhub/internal/models"
)

// Job is one recurring unit of sync work. Run must be safe to invoke from
// the scheduler goroutine and should honor ctx cancellation.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// ConfigError marks a rejected reconfiguration; the running schedule is
// untouched when one is returned.
type ConfigError struct {
	Job    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scheduler config for %q rejected: %s", e.Job, e.Reason)
}

type jobState struct {
	job             Job
	entryID         cron.EntryID
	intervalMinutes int
	enabled         bool
	running         atomic.Bool
	lastStartedAt   atomic.Pointer[time.Time]
	lastFinishedAt  atomic.Pointer[time.Time]
	lastErr         atomic.Pointer[string]
}

// JobStatus is a point-in-time view of one registered job.
type JobStatus struct {
	Name            string     `json:"name"`
	IntervalMinutes int        `json:"interval_minutes"`
	Enabled         bool       `json:"enabled"`
	Running         bool       `json:"running"`
	LastStartedAt   *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt  *time.Time `json:"last_finished_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context

	mu   sync.Mutex
	jobs map[string]*jobState
}

func New(logger *zap.Logger, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		baseCtx: baseCtx,
		jobs:    make(map[string]*jobState),
	}
}

// Register adds a job under its service config and, when enabled, fires the
// first run immediately instead of waiting a full interval.
func (s *Scheduler) Register(job Job, cfg models.ServiceConfig) error {
	if job.Name == "" || job.Run == nil {
		return &ConfigError{Job: job.Name, Reason: "job missing name or run func"}
	}
	if cfg.IntervalMinutes <= 0 {
		return &ConfigError{Job: job.Name, Reason: fmt.Sprintf("interval must be positive, got %d", cfg.IntervalMinutes)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return &ConfigError{Job: job.Name, Reason: "already registered"}
	}

	st := &jobState{job: job, intervalMinutes: cfg.IntervalMinutes, enabled: cfg.Enabled}
	if cfg.Enabled {
		entryID, err := s.cron.AddFunc(intervalSpec(cfg.IntervalMinutes), func() { s.fire(st) })
		if err != nil {
			return err
		}
		st.entryID = entryID
	}
	s.jobs[job.Name] = st

	if cfg.Enabled {
		go s.fire(st)
	}
	return nil
}

// Apply reconfigures a registered job in place. Interval changes swap the
// cron entry; a run already in flight is never interrupted.
func (s *Scheduler) Apply(cfg models.ServiceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[cfg.Name]
	if !ok {
		return &ConfigError{Job: cfg.Name, Reason: "unknown job"}
	}
	if cfg.IntervalMinutes <= 0 {
		return &ConfigError{Job: cfg.Name, Reason: fmt.Sprintf("interval must be positive, got %d", cfg.IntervalMinutes)}
	}

	// Disabling cancels the pending timer outright; enabling (or changing
	// the interval while enabled) installs a fresh entry. A run already in
	// flight keeps going either way.
	if !cfg.Enabled {
		if st.enabled {
			s.cron.Remove(st.entryID)
			st.entryID = 0
		}
		st.intervalMinutes = cfg.IntervalMinutes
	} else if !st.enabled || cfg.IntervalMinutes != st.intervalMinutes {
		entryID, err := s.cron.AddFunc(intervalSpec(cfg.IntervalMinutes), func() { s.fire(st) })
		if err != nil {
			return err
		}
		if st.enabled {
			s.cron.Remove(st.entryID)
		}
		st.entryID = entryID
		st.intervalMinutes = cfg.IntervalMinutes
	}
	st.enabled = cfg.Enabled

	if s.logger != nil {
		s.logger.Info("scheduler job reconfigured",
			zap.String("job", cfg.Name),
			zap.Int("interval_minutes", cfg.IntervalMinutes),
			zap.Bool("enabled", cfg.Enabled))
	}
	return nil
}

// RunNow triggers one off-schedule run; it still respects the
// single-flight guard and the enabled flag is bypassed on purpose so
// operators can exercise a paused job.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	st, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return &ConfigError{Job: name, Reason: "unknown job"}
	}
	go s.run(st)
	return nil
}

func (s *Scheduler) Snapshot() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, st := range s.jobs {
		status := JobStatus{
			Name:            st.job.Name,
			IntervalMinutes: st.intervalMinutes,
			Enabled:         st.enabled,
			Running:         st.running.Load(),
			LastStartedAt:   st.lastStartedAt.Load(),
			LastFinishedAt:  st.lastFinishedAt.Load(),
		}
		if msg := st.lastErr.Load(); msg != nil {
			status.LastError = *msg
		}
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) Start() {
	if s.logger != nil {
		s.logger.Info("scheduler started")
	}
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("scheduler stopped")
	}
}

// fire is the cron-tick entry point: it honors the enabled flag before
// delegating to run.
func (s *Scheduler) fire(st *jobState) {
	s.mu.Lock()
	enabled := st.enabled
	s.mu.Unlock()
	if !enabled {
		return
	}
	s.run(st)
}

// run executes one job pass. The CAS on running guarantees at most one
// in-flight execution per job; overlapping ticks are skipped, not queued.
func (s *Scheduler) run(st *jobState) {
	if !st.running.CompareAndSwap(false, true) {
		if s.logger != nil {
			s.logger.Warn("job still running, tick skipped", zap.String("job", st.job.Name))
		}
		return
	}
	defer st.running.Store(false)

	started := time.Now().UTC()
	st.lastStartedAt.Store(&started)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			st.lastErr.Store(&msg)
			if s.logger != nil {
				s.logger.Error("job panicked", zap.String("job", st.job.Name), zap.Any("panic", r))
			}
		}
		finished := time.Now().UTC()
		st.lastFinishedAt.Store(&finished)
	}()

	err := st.job.Run(s.baseCtx)
	if err != nil {
		msg := err.Error()
		st.lastErr.Store(&msg)
		if s.logger != nil {
			s.logger.Error("job failed", zap.String("job", st.job.Name), zap.Error(err))
		}
		return
	}
	empty := ""
	st.lastErr.Store(&empty)
}

func intervalSpec(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}
