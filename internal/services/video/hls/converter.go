package hls

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
	"github.com/nikita-morkovkin/Aniveil/internal/metrics"
)

const DefaultSegmentDuration = 10

// stderrTailBytes bounds how much encoder stderr ends up in error messages.
const stderrTailBytes = 2048

// ConvertError reports an encoder failure attributed to one quality.
type ConvertError struct {
	Quality domain.Quality
	Err     error
	Detail  string
}

func (e *ConvertError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ffmpeg error (%s): %v: %s", e.Quality, e.Err, e.Detail)
	}
	return fmt.Sprintf("ffmpeg error (%s): %v", e.Quality, e.Err)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// Prober supplies source video metadata to the converter.
type Prober interface {
	Probe(ctx context.Context, filePath string) (domain.VideoInfo, error)
}

// Converter invokes FFmpeg to produce segmented HLS renditions on local disk.
type Converter struct {
	ffmpeg string
	prober Prober
	logger *slog.Logger
}

func NewConverter(ffmpegPath string, prober Prober, logger *slog.Logger) *Converter {
	bin := strings.TrimSpace(ffmpegPath)
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{ffmpeg: bin, prober: prober, logger: logger}
}

// Probe returns the source video metadata.
func (c *Converter) Probe(ctx context.Context, inputPath string) (domain.VideoInfo, error) {
	return c.prober.Probe(ctx, inputPath)
}

// ConvertAll converts the input into every requested quality sequentially,
// then writes the master playlist. The first failing quality aborts the whole
// call; directories already produced for earlier qualities stay on disk for
// the caller's cleanup stage.
func (c *Converter) ConvertAll(ctx context.Context, inputPath, outputDir string, qualities []domain.Quality, segmentDuration int, onQuality func(domain.Quality)) (domain.ConversionOutput, error) {
	if len(qualities) == 0 {
		return domain.ConversionOutput{}, fmt.Errorf("no qualities requested")
	}
	if _, err := os.Stat(inputPath); err != nil {
		return domain.ConversionOutput{}, fmt.Errorf("input file not found: %s", inputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return domain.ConversionOutput{}, fmt.Errorf("create output dir: %w", err)
	}
	if segmentDuration <= 0 {
		segmentDuration = DefaultSegmentDuration
	}

	info, err := c.prober.Probe(ctx, inputPath)
	if err != nil {
		return domain.ConversionOutput{}, err
	}
	c.logger.Info("source video probed",
		slog.String("input", inputPath),
		slog.Int("width", info.Width),
		slog.Int("height", info.Height),
		slog.Float64("duration", info.Duration),
		slog.String("codec", info.Codec),
	)

	results := make([]domain.QualityResult, 0, len(qualities))
	for _, quality := range qualities {
		if onQuality != nil {
			onQuality(quality)
		}
		result, err := c.ConvertOne(ctx, inputPath, outputDir, quality, segmentDuration)
		if err != nil {
			return domain.ConversionOutput{}, err
		}
		results = append(results, result)
		c.logger.Info("quality converted",
			slog.String("quality", string(quality)),
			slog.Int("segments", len(result.SegmentPaths)),
			slog.Int64("bytes", result.TotalBytes),
		)
	}

	masterPath, err := WriteMasterPlaylist(results, outputDir)
	if err != nil {
		return domain.ConversionOutput{}, err
	}

	return domain.ConversionOutput{
		Results:            results,
		MasterPlaylistPath: masterPath,
		Duration:           int64(info.Duration),
	}, nil
}

// ConvertOne encodes a single quality into outputDir/<quality>/ as a VOD
// playlist plus zero-padded segment files.
func (c *Converter) ConvertOne(ctx context.Context, inputPath, outputDir string, quality domain.Quality, segmentDuration int) (domain.QualityResult, error) {
	preset, ok := domain.PresetFor(quality)
	if !ok {
		return domain.QualityResult{}, &ConvertError{Quality: quality, Err: fmt.Errorf("unknown quality")}
	}

	qualityDir := filepath.Join(outputDir, string(quality))
	if err := os.MkdirAll(qualityDir, 0o755); err != nil {
		return domain.QualityResult{}, &ConvertError{Quality: quality, Err: err}
	}

	args := buildConvertArgs(inputPath, qualityDir, preset, segmentDuration)
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	metrics.EncodeDuration.WithLabelValues(string(quality)).Observe(time.Since(start).Seconds())

	if runErr != nil {
		return domain.QualityResult{}, &ConvertError{
			Quality: quality,
			Err:     runErr,
			Detail:  stderrTail(stderr.Bytes()),
		}
	}

	segments, totalBytes, err := collectSegments(qualityDir)
	if err != nil {
		return domain.QualityResult{}, &ConvertError{Quality: quality, Err: err}
	}
	if len(segments) == 0 {
		return domain.QualityResult{}, &ConvertError{Quality: quality, Err: fmt.Errorf("no segments produced")}
	}

	return domain.QualityResult{
		Quality:      quality,
		PlaylistPath: filepath.Join(qualityDir, "playlist.m3u8"),
		SegmentPaths: segments,
		TotalBytes:   totalBytes,
	}, nil
}

// buildConvertArgs constructs the FFmpeg argument list for one quality.
// This is a pure function with no side effects.
func buildConvertArgs(inputPath, qualityDir string, preset domain.QualityPreset, segmentDuration int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "medium",
		"-crf", "23",
		"-vf", fmt.Sprintf("scale=%d:%d", preset.Width, preset.Height),
		"-b:v", preset.Bitrate,
		"-maxrate", preset.MaxRate,
		"-bufsize", preset.BufSize,
		"-b:a", "128k",
		"-hls_time", strconv.Itoa(segmentDuration),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(qualityDir, "segment-%03d.ts"),
		filepath.Join(qualityDir, "playlist.m3u8"),
	}
}

// collectSegments lists the produced .ts files sorted lexicographically
// (equal to playback order) and sums the size of every file in the quality
// directory, playlist included.
func collectSegments(qualityDir string) ([]string, int64, error) {
	entries, err := os.ReadDir(qualityDir)
	if err != nil {
		return nil, 0, err
	}

	var segments []string
	var totalBytes int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, 0, err
		}
		totalBytes += info.Size()
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments = append(segments, filepath.Join(qualityDir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, totalBytes, nil
}

func stderrTail(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) <= stderrTailBytes {
		return trimmed
	}
	return trimmed[len(trimmed)-stderrTailBytes:]
}
