package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"yieldhub/internal/repository"
)

const (
	StatusUp      = "up"
	StatusWarning = "warning"
	StatusDown    = "down"
	StatusUnknown = "unknown"

	AggregateHealthy  = "healthy"
	AggregateDegraded = "degraded"
	AggregateDown     = "down"
)

// Probe is one upstream reachability check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// SourceStatus is the probed state of one upstream.
type SourceStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// JobHealth is derived from sync-state staleness against the job's
// configured interval.
type JobHealth struct {
	Job           string     `json:"job"`
	Status        string     `json:"status"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// HealthSnapshot is the cached aggregate served to the admin API.
type HealthSnapshot struct {
	Status    string         `json:"status"`
	CheckedAt time.Time      `json:"checked_at"`
	Sources   []SourceStatus `json:"sources"`
	Jobs      []JobHealth    `json:"jobs"`
}

// HealthMonitor keeps a TTL-cached aggregate of upstream probes and job
// staleness. Reads never block on probes: a stale cache kicks an async
// refresh and serves the last snapshot.
type HealthMonitor struct {
	Repo         repository.Repository
	Logger       *zap.Logger
	Probes       []Probe
	TTL          time.Duration
	ProbeTimeout time.Duration

	mu         sync.Mutex
	snapshot   *HealthSnapshot
	refreshing bool
}

func (m *HealthMonitor) ttl() time.Duration {
	if m.TTL <= 0 {
		return 30 * time.Second
	}
	return m.TTL
}

func (m *HealthMonitor) probeTimeout() time.Duration {
	if m.ProbeTimeout <= 0 {
		return 5 * time.Second
	}
	return m.ProbeTimeout
}

// Get returns the current snapshot, refreshing in the background when the
// cache has aged out. Before the first refresh completes it reports unknown.
func (m *HealthMonitor) Get(ctx context.Context) HealthSnapshot {
	m.mu.Lock()
	snap := m.snapshot
	fresh := snap != nil && time.Since(snap.CheckedAt) < m.ttl()
	if !fresh && !m.refreshing {
		m.refreshing = true
		go m.refresh(context.WithoutCancel(ctx))
	}
	m.mu.Unlock()

	if snap == nil {
		return HealthSnapshot{Status: StatusUnknown, CheckedAt: time.Now().UTC()}
	}
	return *snap
}

// Run refreshes the cache on an interval until ctx is canceled, so the first
// admin read after a quiet period still sees recent data.
func (m *HealthMonitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	m.kickRefresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.kickRefresh(ctx)
		}
	}
}

func (m *HealthMonitor) kickRefresh(ctx context.Context) {
	m.mu.Lock()
	if m.refreshing {
		m.mu.Unlock()
		return
	}
	m.refreshing = true
	m.mu.Unlock()
	m.refresh(ctx)
}

func (m *HealthMonitor) refresh(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	snap := HealthSnapshot{CheckedAt: time.Now().UTC()}
	snap.Sources = m.probeSources(ctx)
	snap.Jobs = m.jobHealth(ctx)
	snap.Status = aggregate(snap.Sources, snap.Jobs)

	m.mu.Lock()
	m.snapshot = &snap
	m.mu.Unlock()

	if m.Logger != nil && snap.Status != AggregateHealthy {
		m.Logger.Warn("health degraded", zap.String("status", snap.Status))
	}
}

func (m *HealthMonitor) probeSources(ctx context.Context) []SourceStatus {
	out := make([]SourceStatus, len(m.Probes))
	var wg sync.WaitGroup
	for i, p := range m.Probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, m.probeTimeout())
			defer cancel()
			started := time.Now()
			err := p.Check(pctx)
			status := SourceStatus{
				Name:      p.Name,
				Status:    StatusUp,
				LatencyMs: time.Since(started).Milliseconds(),
			}
			if err != nil {
				status.Status = StatusDown
				status.Error = err.Error()
			}
			out[i] = status
		}(i, p)
	}
	wg.Wait()
	return out
}

// jobHealth grades each scheduled job by how stale its last success is
// relative to its configured interval: under one interval is up, under two
// is warning, at or past two is down.
func (m *HealthMonitor) jobHealth(ctx context.Context) []JobHealth {
	states, err := m.Repo.ListSyncStates(ctx)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("failed to load sync states for health", zap.Error(err))
		}
		return nil
	}
	configs, err := m.Repo.ListServiceConfigs(ctx)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("failed to load service configs for health", zap.Error(err))
		}
		return nil
	}
	intervals := make(map[string]time.Duration, len(configs))
	enabled := make(map[string]bool, len(configs))
	for _, c := range configs {
		intervals[c.Name] = time.Duration(c.IntervalMinutes) * time.Minute
		enabled[c.Name] = c.Enabled
	}

	now := time.Now().UTC()
	out := make([]JobHealth, 0, len(states))
	for _, st := range states {
		jh := JobHealth{Job: st.Job, LastSuccessAt: st.LastSuccessAt}
		if st.LastError != nil {
			jh.LastError = *st.LastError
		}
		interval, ok := intervals[st.Job]
		switch {
		case !ok || !enabled[st.Job]:
			// Disabled jobs can't go stale; don't page on them.
			jh.Status = StatusUp
		case st.LastSuccessAt == nil:
			jh.Status = StatusDown
		default:
			age := now.Sub(*st.LastSuccessAt)
			switch {
			case age < interval:
				jh.Status = StatusUp
			case age < 2*interval:
				jh.Status = StatusWarning
			default:
				jh.Status = StatusDown
			}
		}
		out = append(out, jh)
	}
	return out
}

func aggregate(sources []SourceStatus, jobs []JobHealth) string {
	down, warn := 0, 0
	for _, s := range sources {
		if s.Status == StatusDown {
			down++
		}
	}
	for _, j := range jobs {
		switch j.Status {
		case StatusDown:
			down++
		case StatusWarning:
			warn++
		}
	}
	switch {
	case down > 0:
		return AggregateDown
	case warn > 0:
		return AggregateDegraded
	default:
		return AggregateHealthy
	}
}
