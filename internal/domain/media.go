package domain

// VideoInfo is the probed metadata of a source video file. It is computed
// once per job and immutable afterwards.
type VideoInfo struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Bitrate   int64   `json:"bitrate"`
	Codec     string  `json:"codec"`
	FrameRate float64 `json:"frameRate"`
}

// QualityResult is the on-disk output of one per-quality conversion.
// SegmentPaths is sorted lexicographically, which equals playback order
// because segment filenames carry a zero-padded index.
type QualityResult struct {
	Quality      Quality
	PlaylistPath string
	SegmentPaths []string
	TotalBytes   int64
}

// ConversionOutput bundles everything ConvertAll produced for one job.
type ConversionOutput struct {
	Results            []QualityResult
	MasterPlaylistPath string
	Duration           int64
}

// RenditionRecord is the persisted quality-rendition row for an episode.
type RenditionRecord struct {
	ID        string
	EpisodeID string
	Quality   Quality
	FileSize  int64
	HLSURL    string
}

// EpisodeRef identifies an episode and its parent anime in the catalog.
type EpisodeRef struct {
	ID      string
	AnimeID string
}

// ConversionOutcome is the final result payload of a completed job.
type ConversionOutcome struct {
	JobID             JobID     `json:"jobId"`
	AnimeID           string    `json:"animeId"`
	EpisodeID         string    `json:"episodeId"`
	Qualities         []Quality `json:"qualities"`
	MasterPlaylistURL string    `json:"masterPlaylistUrl"`
	Duration          int64     `json:"duration"`
	TotalBytes        int64     `json:"totalSize"`
}
