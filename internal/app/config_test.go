package app

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected default addr %s", cfg.HTTPAddr)
	}
	if cfg.SegmentDuration != 10 {
		t.Errorf("unexpected default segment duration %d", cfg.SegmentDuration)
	}
	if cfg.UploadConcurrency != 4 {
		t.Errorf("unexpected default upload concurrency %d", cfg.UploadConcurrency)
	}
	if cfg.JobSweepIntervalH != 6 || cfg.JobStuckTimeoutH != 4 || cfg.JobRetentionMin != 60 {
		t.Errorf("unexpected sweep defaults: %d/%d/%d", cfg.JobSweepIntervalH, cfg.JobStuckTimeoutH, cfg.JobRetentionMin)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("HLS_SEGMENT_DURATION", "6")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.com, http://b.com")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("expected override, got %s", cfg.HTTPAddr)
	}
	if cfg.SegmentDuration != 6 {
		t.Errorf("expected segment duration 6, got %d", cfg.SegmentDuration)
	}
	if !cfg.S3ForcePathStyle {
		t.Error("expected path style forced")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.com" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfig_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("UPLOAD_CONCURRENCY", "not-a-number")

	cfg := LoadConfig()
	if cfg.UploadConcurrency != 4 {
		t.Errorf("expected fallback to default, got %d", cfg.UploadConcurrency)
	}
}
