package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "github.com/nikita-morkovkin/Aniveil/internal/api/http"
	"github.com/nikita-morkovkin/Aniveil/internal/app"
	"github.com/nikita-morkovkin/Aniveil/internal/metrics"
	mongorepo "github.com/nikita-morkovkin/Aniveil/internal/repository/mongo"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/ffprobe"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/hls"
	"github.com/nikita-morkovkin/Aniveil/internal/services/video/jobs"
	s3storage "github.com/nikita-morkovkin/Aniveil/internal/storage/s3"
	"github.com/nikita-morkovkin/Aniveil/internal/telemetry"
	"github.com/nikita-morkovkin/Aniveil/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "video-processor")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "video-processor"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("s3Bucket", cfg.S3Bucket),
		slog.Int("segmentDuration", cfg.SegmentDuration),
		slog.Int("uploadConcurrency", cfg.UploadConcurrency),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoMonitor := otelmongo.NewMonitor()
	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(mongoMonitor))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalog := mongorepo.NewCatalogRepository(mongoClient, cfg.MongoDatabase)
	if err := catalog.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	store, err := s3storage.New(ctx, s3storage.Config{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		PublicURL:      cfg.S3PublicURL,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		logger.Error("object storage init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	prober := ffprobe.New(cfg.FFProbePath)
	converter := hls.NewConverter(cfg.FFMPEGPath, prober, logger)

	tracker := jobs.NewTracker(jobs.Config{
		SweepInterval: time.Duration(cfg.JobSweepIntervalH) * time.Hour,
		StuckTimeout:  time.Duration(cfg.JobStuckTimeoutH) * time.Hour,
		Retention:     time.Duration(cfg.JobRetentionMin) * time.Minute,
	}, logger)
	go tracker.Run(rootCtx)

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
	statusUC := usecase.GetJobStatus{Jobs: tracker}
	listUC := usecase.ListJobs{Jobs: tracker}

	handler := apihttp.NewServer(convertUC,
		apihttp.WithConvertLocal(convertUC),
		apihttp.WithGetJobStatus(statusUC),
		apihttp.WithListJobs(listUC),
		apihttp.WithMaxUploadBytes(cfg.MaxUploadBytes),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithLogger(logger),
	)
	tracker.SetNotifier(handler.BroadcastJob)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       0, // large multipart uploads
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
