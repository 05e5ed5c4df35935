package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string
	MongoURI           string
	MongoDatabase      string
	LogLevel           string
	LogFormat          string
	FFMPEGPath         string
	FFProbePath        string
	TempDir            string
	SegmentDuration    int
	UploadConcurrency  int
	MaxUploadBytes     int64
	S3Endpoint         string
	S3Region           string
	S3Bucket           string
	S3AccessKey        string
	S3SecretKey        string
	S3PublicURL        string
	S3ForcePathStyle   bool
	JobSweepIntervalH  int64 // hours between tracker sweeps
	JobStuckTimeoutH   int64 // hours a processing job may run before the sweep fails it
	JobRetentionMin    int64 // minutes a terminal job stays queryable
	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	// Optional: variables already set in the environment win over .env.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DB", "aniveil"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		FFMPEGPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFProbePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		TempDir:            getEnv("VIDEO_TEMP_DIR", ""),
		SegmentDuration:    int(getEnvInt64("HLS_SEGMENT_DURATION", 10)),
		UploadConcurrency:  int(getEnvInt64("UPLOAD_CONCURRENCY", 4)),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 4<<30),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", "aniveil"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3PublicURL:        getEnv("S3_PUBLIC_URL", ""),
		S3ForcePathStyle:   getEnvBool("S3_FORCE_PATH_STYLE", false),
		JobSweepIntervalH:  getEnvInt64("JOB_SWEEP_INTERVAL_HOURS", 6),
		JobStuckTimeoutH:   getEnvInt64("JOB_STUCK_TIMEOUT_HOURS", 4),
		JobRetentionMin:    getEnvInt64("JOB_RETENTION_MINUTES", 60),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1"
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
