package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/domain/ports"
	"github.com/nikita-morkovkin/Aniveil/internal/metrics"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/jobs"
)

const (
	segmentContentType  = "video/mp2t"
	playlistContentType = "application/vnd.apple.mpegurl"
)

// ConvertVideo runs the whole pipeline for one episode: probe and transcode
// into a job-scoped temp directory, upload segments and playlists, persist
// rendition metadata and episode duration, then clean up. Each stage moves
// the tracked job's progress forward; any failure before cleanup marks the
// job failed with the underlying error message.
type ConvertVideo struct {
	Catalog           ports.CatalogRepository
	Store             ports.Uploader
	Transcoder        ports.Transcoder
	Jobs              *jobs.Tracker
	Logger            *slog.Logger
	TempDir           string // defaults to os.TempDir()
	SegmentDuration   int    // defaults to 10 seconds
	UploadConcurrency int    // segment uploads in flight per quality, defaults to 4
}

type ConvertVideoInput struct {
	InputPath string
	AnimeID   string
	EpisodeID string
	Qualities []domain.Quality
}

func (uc ConvertVideo) Execute(ctx context.Context, input ConvertVideoInput) (domain.ConversionOutcome, error) {
	qualities, err := validateInput(input)
	if err != nil {
		return domain.ConversionOutcome{}, err
	}

	logger := uc.logger()
	jobID := uc.Jobs.Create(input.AnimeID, input.EpisodeID)
	logger.Info("conversion job started",
		slog.String("jobId", string(jobID)),
		slog.String("input", input.InputPath),
		slog.String("episodeId", input.EpisodeID),
		slog.Any("qualities", qualities),
	)

	outcome, err := uc.run(ctx, jobID, input.InputPath, input.AnimeID, input.EpisodeID, qualities)
	if err != nil {
		uc.Jobs.MarkFailed(jobID, err.Error())
		logger.Error("conversion job failed",
			slog.String("jobId", string(jobID)),
			slog.String("error", err.Error()),
		)
		return domain.ConversionOutcome{}, err
	}

	uc.Jobs.MarkCompleted(jobID)
	logger.Info("conversion job completed",
		slog.String("jobId", string(jobID)),
		slog.Int64("duration", outcome.Duration),
		slog.Int64("totalBytes", outcome.TotalBytes),
	)
	return outcome, nil
}

// ExecuteBuffer materializes an uploaded buffer to a temp input file and
// delegates to Execute. The temp input is removed on every exit path.
func (uc ConvertVideo) ExecuteBuffer(ctx context.Context, data []byte, animeID, episodeID string, qualities []domain.Quality) (domain.ConversionOutcome, error) {
	if len(data) == 0 {
		return domain.ConversionOutcome{}, fmt.Errorf("%w: empty video buffer", ErrInvalidInput)
	}

	tmp, err := os.CreateTemp(uc.tempRoot(), "input-*.mp4")
	if err != nil {
		return domain.ConversionOutcome{}, fmt.Errorf("create temp input: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			uc.logger().Warn("temp input cleanup failed",
				slog.String("path", tmpPath),
				slog.String("error", err.Error()),
			)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.ConversionOutcome{}, fmt.Errorf("write temp input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ConversionOutcome{}, fmt.Errorf("write temp input: %w", err)
	}

	return uc.Execute(ctx, ConvertVideoInput{
		InputPath: tmpPath,
		AnimeID:   animeID,
		EpisodeID: episodeID,
		Qualities: qualities,
	})
}

func (uc ConvertVideo) run(ctx context.Context, jobID domain.JobID, inputPath, animeID, episodeID string, qualities []domain.Quality) (domain.ConversionOutcome, error) {
	episode, err := uc.Catalog.GetEpisode(ctx, episodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConversionOutcome{}, fmt.Errorf("%w: episode %s", domain.ErrNotFound, episodeID)
		}
		return domain.ConversionOutcome{}, wrapRepo(err)
	}
	if episode.AnimeID != animeID {
		return domain.ConversionOutcome{}, fmt.Errorf("%w: episode %s does not belong to anime %s", domain.ErrNotFound, episodeID, animeID)
	}

	tempDir := filepath.Join(uc.tempRoot(), "hls_"+string(jobID))
	// Cleanup runs on the failure path too; a second RemoveAll after the
	// explicit cleanup stage is a no-op.
	defer uc.cleanupTempDir(tempDir)

	uc.Jobs.UpdateProgress(jobID, 10, "")
	total := len(qualities)
	started := 0
	output, err := uc.Transcoder.ConvertAll(ctx, inputPath, tempDir, qualities, uc.segmentDuration(), func(q domain.Quality) {
		uc.Jobs.UpdateProgress(jobID, 10+(40*started)/total, q)
		started++
	})
	if err != nil {
		return domain.ConversionOutcome{}, wrapTranscoder(err)
	}

	uc.Jobs.UpdateProgress(jobID, 50, "")
	for _, result := range output.Results {
		uc.Jobs.UpdateProgress(jobID, 50, result.Quality)
		if err := uc.uploadQuality(ctx, animeID, episodeID, result); err != nil {
			return domain.ConversionOutcome{}, err
		}
	}

	uc.Jobs.UpdateProgress(jobID, 80, "")
	masterURL, err := uc.uploadMaster(ctx, animeID, episodeID, output.MasterPlaylistPath)
	if err != nil {
		return domain.ConversionOutcome{}, err
	}

	uc.Jobs.UpdateProgress(jobID, 90, "")
	var totalBytes int64
	for _, result := range output.Results {
		record := domain.RenditionRecord{
			EpisodeID: episodeID,
			Quality:   result.Quality,
			FileSize:  result.TotalBytes,
			HLSURL:    domain.QualityPlaylistKey(animeID, episodeID, result.Quality),
		}
		if err := uc.Catalog.CreateRendition(ctx, record); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// Resubmission for an already-processed quality is not an error.
				uc.logger().Info("rendition already recorded",
					slog.String("episodeId", episodeID),
					slog.String("quality", string(result.Quality)),
				)
			} else {
				return domain.ConversionOutcome{}, wrapRepo(err)
			}
		}
		totalBytes += result.TotalBytes
	}

	if err := uc.Catalog.SetEpisodeDuration(ctx, episodeID, output.Duration); err != nil {
		return domain.ConversionOutcome{}, wrapRepo(err)
	}

	uc.Jobs.UpdateProgress(jobID, 95, "")
	uc.cleanupTempDir(tempDir)

	uc.Jobs.UpdateProgress(jobID, 100, "")
	return domain.ConversionOutcome{
		JobID:             jobID,
		AnimeID:           animeID,
		EpisodeID:         episodeID,
		Qualities:         qualities,
		MasterPlaylistURL: masterURL,
		Duration:          output.Duration,
		TotalBytes:        totalBytes,
	}, nil
}

// uploadQuality uploads every segment of one rendition, then its playlist.
// Segments go first so no reader of the destination store can see a playlist
// referencing missing segments; indices follow on-disk lexicographic order so
// uploaded names match playback order.
func (uc ConvertVideo) uploadQuality(ctx context.Context, animeID, episodeID string, result domain.QualityResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.uploadConcurrency())

	for i, segmentPath := range result.SegmentPaths {
		i, segmentPath := i, segmentPath
		g.Go(func() error {
			data, err := os.ReadFile(segmentPath)
			if err != nil {
				return fmt.Errorf("read segment %s: %w", filepath.Base(segmentPath), err)
			}
			key := domain.SegmentKey(animeID, episodeID, result.Quality, i)
			if _, err := uc.Store.Upload(gctx, key, data, segmentContentType); err != nil {
				metrics.UploadFailuresTotal.Inc()
				return err
			}
			metrics.UploadedBytesTotal.Add(float64(len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return wrapStorage(err)
	}

	playlist, err := os.ReadFile(result.PlaylistPath)
	if err != nil {
		return wrapStorage(fmt.Errorf("read playlist for %s: %w", result.Quality, err))
	}
	key := domain.QualityPlaylistKey(animeID, episodeID, result.Quality)
	if _, err := uc.Store.Upload(ctx, key, playlist, playlistContentType); err != nil {
		metrics.UploadFailuresTotal.Inc()
		return wrapStorage(err)
	}
	metrics.UploadedBytesTotal.Add(float64(len(playlist)))

	uc.logger().Info("quality uploaded",
		slog.String("quality", string(result.Quality)),
		slog.Int("segments", len(result.SegmentPaths)),
	)
	return nil
}

func (uc ConvertVideo) uploadMaster(ctx context.Context, animeID, episodeID, masterPath string) (string, error) {
	data, err := os.ReadFile(masterPath)
	if err != nil {
		return "", wrapStorage(fmt.Errorf("read master playlist: %w", err))
	}
	result, err := uc.Store.Upload(ctx, domain.MasterPlaylistKey(animeID, episodeID), data, playlistContentType)
	if err != nil {
		metrics.UploadFailuresTotal.Inc()
		return "", wrapStorage(err)
	}
	metrics.UploadedBytesTotal.Add(float64(len(data)))
	return result.URL, nil
}

// cleanupTempDir removes the job's temp tree. Best effort: failures are
// logged and never flip the job status.
func (uc ConvertVideo) cleanupTempDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		uc.logger().Warn("temp directory cleanup failed",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
	}
}

func validateInput(input ConvertVideoInput) ([]domain.Quality, error) {
	if strings.TrimSpace(input.InputPath) == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.AnimeID) == "" || strings.TrimSpace(input.EpisodeID) == "" {
		return nil, fmt.Errorf("%w: anime and episode ids are required", ErrInvalidInput)
	}
	if len(input.Qualities) == 0 {
		return nil, fmt.Errorf("%w: at least one quality is required", ErrInvalidInput)
	}

	seen := make(map[domain.Quality]struct{}, len(input.Qualities))
	qualities := make([]domain.Quality, 0, len(input.Qualities))
	for _, q := range input.Qualities {
		if _, ok := domain.PresetFor(q); !ok {
			return nil, fmt.Errorf("%w: unknown quality %q", ErrInvalidInput, q)
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		qualities = append(qualities, q)
	}
	return qualities, nil
}

func (uc ConvertVideo) tempRoot() string {
	if strings.TrimSpace(uc.TempDir) != "" {
		return uc.TempDir
	}
	return os.TempDir()
}

func (uc ConvertVideo) segmentDuration() int {
	if uc.SegmentDuration > 0 {
		return uc.SegmentDuration
	}
	return 10
}

func (uc ConvertVideo) uploadConcurrency() int {
	if uc.UploadConcurrency > 0 {
		return uc.UploadConcurrency
	}
	return 4
}

func (uc ConvertVideo) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
