package domain

import "fmt"

// Object storage key layout for episode video content. The layout is shared
// with previously uploaded content and must not change.

// EpisodePrefix returns anime/{animeId}/episodes/{episodeId}.
func EpisodePrefix(animeID, episodeID string) string {
	return fmt.Sprintf("anime/%s/episodes/%s", animeID, episodeID)
}

// MasterPlaylistKey returns anime/{animeId}/episodes/{episodeId}/master.m3u8.
func MasterPlaylistKey(animeID, episodeID string) string {
	return EpisodePrefix(animeID, episodeID) + "/master.m3u8"
}

// QualityPlaylistKey returns anime/{animeId}/episodes/{episodeId}/{quality}/playlist.m3u8.
func QualityPlaylistKey(animeID, episodeID string, q Quality) string {
	return fmt.Sprintf("%s/%s/playlist.m3u8", EpisodePrefix(animeID, episodeID), q)
}

// SegmentKey returns anime/{animeId}/episodes/{episodeId}/{quality}/segment-{index}.ts
// with the index zero-padded to three digits.
func SegmentKey(animeID, episodeID string, q Quality, index int) string {
	return fmt.Sprintf("%s/%s/segment-%03d.ts", EpisodePrefix(animeID, episodeID), q, index)
}
