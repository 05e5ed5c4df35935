package ports

import (
	"context"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

// Transcoder produces HLS renditions of a source video on local disk.
// ConvertAll runs the requested qualities sequentially and fails on the
// first quality that cannot be converted; onQuality, when non-nil, is
// invoked before each quality starts.
type Transcoder interface {
	Probe(ctx context.Context, inputPath string) (domain.VideoInfo, error)
	ConvertAll(ctx context.Context, inputPath, outputDir string, qualities []domain.Quality, segmentDuration int, onQuality func(domain.Quality)) (domain.ConversionOutput, error)
}
