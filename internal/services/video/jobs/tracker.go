package jobs

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/metrics"
)

const (
	DefaultSweepInterval = 6 * time.Hour
	DefaultStuckTimeout  = 4 * time.Hour
	DefaultRetention     = time.Hour
)

type Config struct {
	SweepInterval time.Duration
	StuckTimeout  time.Duration
	Retention     time.Duration
	Now           func() time.Time
}

// Tracker is the in-memory conversion job table. All methods are safe for
// concurrent use; callers only ever receive snapshots.
type Tracker struct {
	mu     sync.RWMutex
	jobs   map[domain.JobID]*domain.ConversionJob
	logger *slog.Logger

	sweepInterval time.Duration
	stuckTimeout  time.Duration
	retention     time.Duration
	now           func() time.Time

	notify func(domain.ConversionJob)
}

func NewTracker(cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.StuckTimeout <= 0 {
		cfg.StuckTimeout = DefaultStuckTimeout
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		jobs:          make(map[domain.JobID]*domain.ConversionJob),
		logger:        logger,
		sweepInterval: cfg.SweepInterval,
		stuckTimeout:  cfg.StuckTimeout,
		retention:     cfg.Retention,
		now:           cfg.Now,
	}
}

// SetNotifier installs a callback invoked with a snapshot after every job
// mutation. Must be set before the first job is created.
func (t *Tracker) SetNotifier(fn func(domain.ConversionJob)) {
	t.notify = fn
}

// Create inserts a new processing job and returns its id.
func (t *Tracker) Create(animeID, episodeID string) domain.JobID {
	id := newJobID()
	job := &domain.ConversionJob{
		ID:        id,
		Status:    domain.ConversionProcessing,
		Progress:  0,
		StartedAt: t.now(),
		AnimeID:   animeID,
		EpisodeID: episodeID,
	}

	t.mu.Lock()
	t.jobs[id] = job
	snapshot := *job
	t.mu.Unlock()

	metrics.JobStartsTotal.Inc()
	metrics.ActiveJobs.Inc()
	t.emit(snapshot)
	return id
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(id domain.JobID) (domain.ConversionJob, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	if !ok {
		return domain.ConversionJob{}, domain.ErrNotFound
	}
	return *job, nil
}

// List returns snapshots of all tracked jobs, newest first.
func (t *Tracker) List() []domain.ConversionJob {
	t.mu.RLock()
	out := make([]domain.ConversionJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, *job)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// UpdateProgress raises the job's progress. Percent never decreases; a lower
// value is ignored. No-ops when the job is absent or already terminal.
func (t *Tracker) UpdateProgress(id domain.JobID, percent int, quality domain.Quality) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok || job.Terminal() {
		t.mu.Unlock()
		return
	}
	if percent > job.Progress {
		job.Progress = percent
	}
	if quality != "" {
		job.CurrentQuality = quality
	}
	snapshot := *job
	t.mu.Unlock()

	t.emit(snapshot)
}

// MarkCompleted transitions the job to its terminal completed state.
func (t *Tracker) MarkCompleted(id domain.JobID) {
	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok || job.Terminal() {
		t.mu.Unlock()
		return
	}
	job.Status = domain.ConversionCompleted
	job.Progress = 100
	job.CurrentQuality = ""
	job.CompletedAt = t.now()
	snapshot := *job
	t.mu.Unlock()

	metrics.ActiveJobs.Dec()
	t.emit(snapshot)
}

// MarkFailed transitions the job to its terminal failed state.
func (t *Tracker) MarkFailed(id domain.JobID, message string) {
	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}

	t.mu.Lock()
	job, ok := t.jobs[id]
	if !ok || job.Terminal() {
		t.mu.Unlock()
		return
	}
	job.Status = domain.ConversionFailed
	job.Error = message
	job.CompletedAt = t.now()
	snapshot := *job
	t.mu.Unlock()

	metrics.ActiveJobs.Dec()
	metrics.JobFailuresTotal.Inc()
	t.emit(snapshot)
}

// Sweep fails out processing jobs older than the stuck timeout and evicts
// terminal jobs whose completion is older than retention. Returns the number
// of evicted jobs.
func (t *Tracker) Sweep(retention time.Duration) int {
	if retention <= 0 {
		retention = t.retention
	}
	now := t.now()

	var timedOut []domain.ConversionJob
	evicted := 0

	t.mu.Lock()
	for id, job := range t.jobs {
		if job.Status == domain.ConversionProcessing && now.Sub(job.StartedAt) > t.stuckTimeout {
			job.Status = domain.ConversionFailed
			job.Error = "job timed out after " + t.stuckTimeout.String()
			job.CompletedAt = now
			timedOut = append(timedOut, *job)
			continue
		}
		if job.Terminal() && !job.CompletedAt.IsZero() && now.Sub(job.CompletedAt) > retention {
			delete(t.jobs, id)
			evicted++
		}
	}
	t.mu.Unlock()

	for _, job := range timedOut {
		t.logger.Warn("job marked as timed out", slog.String("jobId", string(job.ID)))
		metrics.ActiveJobs.Dec()
		metrics.JobFailuresTotal.Inc()
		t.emit(job)
	}
	if evicted > 0 {
		metrics.JobsEvictedTotal.Add(float64(evicted))
		t.logger.Info("old conversion jobs evicted", slog.Int("count", evicted))
	}
	return evicted
}

// Run executes the periodic sweep until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep(t.retention)
		}
	}
}

func (t *Tracker) emit(job domain.ConversionJob) {
	if t.notify != nil {
		t.notify(job)
	}
}

func newJobID() domain.JobID {
	return domain.JobID("job_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}
