package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/usecase"
)

type ConvertVideoUseCase interface {
	ExecuteBuffer(ctx context.Context, data []byte, animeID, episodeID string, qualities []domain.Quality) (domain.ConversionOutcome, error)
}

type ConvertLocalUseCase interface {
	Execute(ctx context.Context, input usecase.ConvertVideoInput) (domain.ConversionOutcome, error)
}

type GetJobStatusUseCase interface {
	Execute(jobID domain.JobID) (domain.ConversionJob, error)
}

type ListJobsUseCase interface {
	Execute() []domain.ConversionJob
}

type Server struct {
	convertVideo   ConvertVideoUseCase
	convertLocal   ConvertLocalUseCase
	getStatus      GetJobStatusUseCase
	listJobs       ListJobsUseCase
	maxUploadBytes int64
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithConvertLocal(uc ConvertLocalUseCase) ServerOption {
	return func(s *Server) {
		s.convertLocal = uc
	}
}

func WithGetJobStatus(uc GetJobStatusUseCase) ServerOption {
	return func(s *Server) {
		s.getStatus = uc
	}
}

func WithListJobs(uc ListJobsUseCase) ServerOption {
	return func(s *Server) {
		s.listJobs = uc
	}
}

// WithMaxUploadBytes caps the size of a multipart video upload.
func WithMaxUploadBytes(limit int64) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.maxUploadBytes = limit
		}
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(convert ConvertVideoUseCase, opts ...ServerOption) *Server {
	s := &Server{
		convertVideo:   convert,
		maxUploadBytes: 4 << 30,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/video-processor/convert", s.handleConvert)
	mux.HandleFunc("/video-processor/convert-local", s.handleConvertLocal)
	mux.HandleFunc("/video-processor/status/", s.handleJobStatus)
	mux.HandleFunc("/video-processor/jobs", s.handleJobs)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "video-processor",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastJob pushes a job snapshot to all connected WebSocket clients.
// Wired as the job tracker's notifier.
func (s *Server) BroadcastJob(job domain.ConversionJob) {
	if s.wsHub != nil {
		s.wsHub.BroadcastJob(job)
	}
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
