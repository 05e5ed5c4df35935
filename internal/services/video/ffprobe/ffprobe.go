package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

var ErrNoVideoStream = errors.New("no video stream found")

type Prober struct {
	binary string
}

func New(binary string) *Prober {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{binary: bin}
}

const maxProbeTimeout = 30 * time.Second

// Probe extracts duration, dimensions, codec and frame rate from the first
// video stream of the file.
func (p *Prober) Probe(ctx context.Context, filePath string) (domain.VideoInfo, error) {
	path := strings.TrimSpace(filePath)
	if path == "" {
		return domain.VideoInfo{}, errors.New("file path is required")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxProbeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return domain.VideoInfo{}, fmt.Errorf("ffprobe failed: %w", err)
		}
		return domain.VideoInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, msg)
	}

	info, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return domain.VideoInfo{}, err
	}
	return info, nil
}

// probePayload is the subset of ffprobe JSON output we parse.
type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

func parseProbeOutput(data []byte) (domain.VideoInfo, error) {
	var payload probePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.VideoInfo{}, fmt.Errorf("ffprobe output parse failed: %w", err)
	}

	var video *probeStream
	for i := range payload.Streams {
		if payload.Streams[i].CodecType == "video" {
			video = &payload.Streams[i]
			break
		}
	}
	if video == nil {
		return domain.VideoInfo{}, ErrNoVideoStream
	}

	codec := video.CodecName
	if codec == "" {
		codec = "unknown"
	}

	var duration float64
	if payload.Format.Duration != "" {
		if d, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && d > 0 {
			duration = d
		}
	}

	var bitrate int64
	if payload.Format.BitRate != "" {
		if b, err := strconv.ParseInt(payload.Format.BitRate, 10, 64); err == nil && b > 0 {
			bitrate = b
		}
	}

	return domain.VideoInfo{
		Duration:  duration,
		Width:     video.Width,
		Height:    video.Height,
		Bitrate:   bitrate,
		Codec:     codec,
		FrameRate: parseFrameRate(video.RFrameRate),
	}, nil
}

// parseFrameRate handles ffprobe rational strings ("30000/1001", "30/1") and
// bare decimals. Absent or unparseable input yields 0, not an error.
func parseFrameRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0
		}
		return n / d
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
