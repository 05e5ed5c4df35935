package ports

import (
	"context"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

// CatalogRepository is the slice of the relational catalog the pipeline
// consumes: episode lookup before processing, rendition metadata and episode
// duration writes after success.
type CatalogRepository interface {
	GetEpisode(ctx context.Context, episodeID string) (domain.EpisodeRef, error)
	CreateRendition(ctx context.Context, record domain.RenditionRecord) error
	SetEpisodeDuration(ctx context.Context, episodeID string, seconds int64) error
}
