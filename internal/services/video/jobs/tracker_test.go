package jobs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

// fakeClock lets tests move tracker time forward deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(clock *fakeClock) *Tracker {
	return NewTracker(Config{
		SweepInterval: time.Hour,
		StuckTimeout:  4 * time.Hour,
		Retention:     time.Hour,
		Now:           clock.Now,
	}, nil)
}

func TestTracker_CreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)

	id := tracker.Create("anime-1", "ep-1")
	if !strings.HasPrefix(string(id), "job_") {
		t.Errorf("expected job_ prefix, got %s", id)
	}
	if strings.Contains(string(id), "-") {
		t.Errorf("job id must not contain dashes: %s", id)
	}

	job, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != domain.ConversionProcessing {
		t.Errorf("expected processing, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("expected progress 0, got %d", job.Progress)
	}
	if job.AnimeID != "anime-1" || job.EpisodeID != "ep-1" {
		t.Errorf("unexpected identifiers: %s/%s", job.AnimeID, job.EpisodeID)
	}
}

func TestTracker_GetUnknown(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})
	if _, err := tracker.Get("job_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTracker_ListNewestFirst(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)

	first := tracker.Create("a", "e1")
	clock.Advance(time.Minute)
	second := tracker.Create("a", "e2")

	jobs := tracker.List()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != second || jobs[1].ID != first {
		t.Errorf("expected newest first, got %s then %s", jobs[0].ID, jobs[1].ID)
	}
}

func TestTracker_ProgressIsMonotonic(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})
	id := tracker.Create("a", "e")

	tracker.UpdateProgress(id, 50, domain.Quality480p)
	tracker.UpdateProgress(id, 10, domain.Quality720p)

	job, _ := tracker.Get(id)
	if job.Progress != 50 {
		t.Errorf("progress must not decrease, got %d", job.Progress)
	}
	if job.CurrentQuality != domain.Quality720p {
		t.Errorf("quality should still update, got %s", job.CurrentQuality)
	}
}

func TestTracker_ProgressClamped(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})
	id := tracker.Create("a", "e")

	tracker.UpdateProgress(id, 150, "")
	job, _ := tracker.Get(id)
	if job.Progress != 100 {
		t.Errorf("expected clamp to 100, got %d", job.Progress)
	}
}

func TestTracker_MarkCompleted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)
	id := tracker.Create("a", "e")

	tracker.UpdateProgress(id, 60, domain.Quality1080p)
	tracker.MarkCompleted(id)

	job, _ := tracker.Get(id)
	if job.Status != domain.ConversionCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.CurrentQuality != "" {
		t.Errorf("expected current quality cleared, got %s", job.CurrentQuality)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected completedAt set")
	}
}

func TestTracker_MarkFailed(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})
	id := tracker.Create("a", "e")

	tracker.MarkFailed(id, "encoder exploded")

	job, _ := tracker.Get(id)
	if job.Status != domain.ConversionFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if job.Error != "encoder exploded" {
		t.Errorf("unexpected error message: %s", job.Error)
	}
}

func TestTracker_TerminalJobsAreImmutable(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})
	id := tracker.Create("a", "e")

	tracker.MarkFailed(id, "boom")
	tracker.MarkCompleted(id)
	tracker.UpdateProgress(id, 99, domain.Quality720p)

	job, _ := tracker.Get(id)
	if job.Status != domain.ConversionFailed {
		t.Errorf("terminal status must not change, got %s", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("terminal progress must not change, got %d", job.Progress)
	}
}

func TestTracker_SweepFailsStuckJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)
	id := tracker.Create("a", "e")

	clock.Advance(5 * time.Hour)
	tracker.Sweep(time.Hour)

	job, _ := tracker.Get(id)
	if job.Status != domain.ConversionFailed {
		t.Errorf("expected stuck job failed, got %s", job.Status)
	}
	if !strings.Contains(job.Error, "timed out") {
		t.Errorf("expected timeout message, got %q", job.Error)
	}
}

func TestTracker_SweepEvictsOldTerminalJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)

	old := tracker.Create("a", "e1")
	tracker.MarkCompleted(old)

	clock.Advance(2 * time.Hour)
	fresh := tracker.Create("a", "e2")
	tracker.MarkCompleted(fresh)

	evicted := tracker.Sweep(time.Hour)
	if evicted != 1 {
		t.Fatalf("expected 1 evicted job, got %d", evicted)
	}
	if _, err := tracker.Get(old); !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected old job evicted")
	}
	if _, err := tracker.Get(fresh); err != nil {
		t.Errorf("fresh job must survive: %v", err)
	}
}

func TestTracker_SweepKeepsRecentProcessingJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tracker := newTestTracker(clock)
	id := tracker.Create("a", "e")

	clock.Advance(time.Hour)
	tracker.Sweep(time.Hour)

	job, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("job must survive sweep: %v", err)
	}
	if job.Status != domain.ConversionProcessing {
		t.Errorf("expected still processing, got %s", job.Status)
	}
}

func TestTracker_NotifierReceivesSnapshots(t *testing.T) {
	tracker := newTestTracker(&fakeClock{now: time.Now()})

	var events []domain.ConversionJob
	tracker.SetNotifier(func(job domain.ConversionJob) {
		events = append(events, job)
	})

	id := tracker.Create("a", "e")
	tracker.UpdateProgress(id, 50, domain.Quality480p)
	tracker.MarkCompleted(id)

	if len(events) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(events))
	}
	if events[0].Status != domain.ConversionProcessing || events[2].Status != domain.ConversionCompleted {
		t.Errorf("unexpected notification sequence: %v then %v", events[0].Status, events[2].Status)
	}
	if events[1].Progress != 50 {
		t.Errorf("expected progress snapshot 50, got %d", events[1].Progress)
	}
}
