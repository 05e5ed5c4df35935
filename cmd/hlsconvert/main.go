package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nikita-morkovkin/Aniveil/internal/app"
	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	mongorepo "github.com/nikita-morkovkin/Aniveil/internal/repository/mongo"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/ffprobe"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/hls"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/jobs"
	s3storage "github.com/nikita-morkovkin/Aniveil/internal/storage/s3"
	"github.com/nikita-morkovkin/Aniveil/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// hlsconvert runs the conversion pipeline once from the command line:
// probe and transcode a local file, upload the renditions, record them
// in the catalog, then print the outcome as JSON.
func main() {
	input := flag.String("input", "", "path to the source video file")
	animeID := flag.String("anime", "", "anime id the episode belongs to")
	episodeID := flag.String("episode", "", "episode id to attach renditions to")
	qualitiesRaw := flag.String("qualities", "", "comma-separated qualities (default: all)")
	flag.Parse()

	if *input == "" || *animeID == "" || *episodeID == "" {
		fmt.Fprintln(os.Stderr, "usage: hlsconvert -input video.mp4 -anime <id> -episode <id> [-qualities 480p,720p]")
		os.Exit(2)
	}

	qualities, err := parseQualities(*qualitiesRaw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := app.LoadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongorepo.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		fatal("mongo connect failed", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		fatal("mongo ping failed", err)
	}

	catalog := mongorepo.NewCatalogRepository(mongoClient, cfg.MongoDatabase)
	if err := catalog.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	store, err := s3storage.New(connectCtx, s3storage.Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		PublicURL:      cfg.S3PublicURL,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		fatal("object storage init failed", err)
	}

	prober := ffprobe.New(cfg.FFProbePath)
	converter := hls.NewConverter(cfg.FFMPEGPath, prober, logger)
	tracker := jobs.NewTracker(jobs.Config{}, logger)

	convertUC := usecase.ConvertVideo{
		Catalog:           catalog,
		Store:             store,
		Transcoder:        converter,
		Jobs:              tracker,
		Logger:            logger,
		TempDir:           cfg.TempDir,
		SegmentDuration:   cfg.SegmentDuration,
		UploadConcurrency: cfg.UploadConcurrency,
	}

	outcome, err := convertUC.Execute(ctx, usecase.ConvertVideoInput{
		InputPath: *input,
		AnimeID:   *animeID,
		EpisodeID: *episodeID,
		Qualities: qualities,
	})
	if err != nil {
		fatal("conversion failed", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(outcome)
}

func parseQualities(raw string) ([]domain.Quality, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Qualities(), nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]domain.Quality, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		q, err := domain.ParseQuality(item)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return domain.Qualities(), nil
	}
	return out, nil
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
