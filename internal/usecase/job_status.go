package usecase

import (
	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/jobs"
)

// GetJobStatus resolves a single tracked conversion job by id.
type GetJobStatus struct {
	Jobs *jobs.Tracker
}

func (uc GetJobStatus) Execute(jobID domain.JobID) (domain.ConversionJob, error) {
	return uc.Jobs.Get(jobID)
}

// ListJobs returns every tracked job, newest first.
type ListJobs struct {
	Jobs *jobs.Tracker
}

func (uc ListJobs) Execute() []domain.ConversionJob {
	return uc.Jobs.List()
}
