package domain

import (
	"errors"
	"time"
)

type JobID string

type ConversionStatus string

const (
	ConversionPending    ConversionStatus = "pending"
	ConversionProcessing ConversionStatus = "processing"
	ConversionCompleted  ConversionStatus = "completed"
	ConversionFailed     ConversionStatus = "failed"
)

// ConversionJob is one asynchronous run of the transcode-upload-persist
// pipeline for one episode. The orchestrator owns the mutable fields while
// the job runs; everyone else sees snapshots from the tracker.
type ConversionJob struct {
	ID             JobID            `json:"jobId"`
	Status         ConversionStatus `json:"status"`
	Progress       int              `json:"progress"`
	CurrentQuality Quality          `json:"currentQuality,omitempty"`
	Error          string           `json:"error,omitempty"`
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    time.Time        `json:"completedAt,omitzero"`
	AnimeID        string           `json:"animeId"`
	EpisodeID      string           `json:"episodeId"`
}

// Terminal reports whether the job has reached a final status.
func (j ConversionJob) Terminal() bool {
	return j.Status == ConversionCompleted || j.Status == ConversionFailed
}

// Validate checks domain invariants for ConversionJob.
func (j ConversionJob) Validate() error {
	if j.ID == "" {
		return errors.New("job id is required")
	}
	if j.Progress < 0 || j.Progress > 100 {
		return errors.New("progress must be within 0-100")
	}
	switch j.Status {
	case ConversionPending, ConversionProcessing, ConversionCompleted, ConversionFailed:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(j.Status))
	}
	if j.Status == ConversionFailed && j.Error == "" {
		return errors.New("failed job requires an error message")
	}
	return nil
}
