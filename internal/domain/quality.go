package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Quality identifies one fixed rendition of the encoding ladder.
type Quality string

const (
	Quality360p  Quality = "360p"
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
)

// QualityPreset holds the encoder parameters for one quality level.
// Bitrate, MaxRate and BufSize are FFmpeg rate-control strings ("800k").
// Bandwidth is the value advertised in the master playlist and already
// includes audio plus container overhead, so it exceeds MaxRate.
type QualityPreset struct {
	Quality   Quality
	Width     int
	Height    int
	Bitrate   string
	MaxRate   string
	BufSize   string
	Bandwidth int
}

var qualityPresets = map[Quality]QualityPreset{
	Quality360p: {
		Quality:   Quality360p,
		Width:     640,
		Height:    360,
		Bitrate:   "800k",
		MaxRate:   "856k",
		BufSize:   "1200k",
		Bandwidth: 928000,
	},
	Quality480p: {
		Quality:   Quality480p,
		Width:     854,
		Height:    480,
		Bitrate:   "1400k",
		MaxRate:   "1498k",
		BufSize:   "2100k",
		Bandwidth: 1528000,
	},
	Quality720p: {
		Quality:   Quality720p,
		Width:     1280,
		Height:    720,
		Bitrate:   "2800k",
		MaxRate:   "2996k",
		BufSize:   "4200k",
		Bandwidth: 2928000,
	},
	Quality1080p: {
		Quality:   Quality1080p,
		Width:     1920,
		Height:    1080,
		Bitrate:   "5000k",
		MaxRate:   "5350k",
		BufSize:   "7500k",
		Bandwidth: 5128000,
	},
}

var qualityRank = map[Quality]int{
	Quality360p:  1,
	Quality480p:  2,
	Quality720p:  3,
	Quality1080p: 4,
}

// PresetFor returns the preset for a quality, if it is part of the ladder.
func PresetFor(q Quality) (QualityPreset, bool) {
	preset, ok := qualityPresets[q]
	return preset, ok
}

// Rank returns the position of the quality in the ladder, ascending by
// resolution. Unknown qualities sort last.
func (q Quality) Rank() int {
	if rank, ok := qualityRank[q]; ok {
		return rank
	}
	return len(qualityRank) + 1
}

// ParseQuality normalizes a quality identifier ("720p", "720P").
func ParseQuality(value string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := qualityPresets[q]; !ok {
		return "", fmt.Errorf("unknown quality %q", value)
	}
	return q, nil
}

// Qualities returns the full ladder in ascending resolution order.
func Qualities() []Quality {
	return []Quality{Quality360p, Quality480p, Quality720p, Quality1080p}
}

// SortQualities orders qualities ascending by resolution, in place.
func SortQualities(qs []Quality) {
	sort.Slice(qs, func(i, j int) bool {
		return qs[i].Rank() < qs[j].Rank()
	})
}
