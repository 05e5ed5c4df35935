package hls

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nikita-morkovkin/Aniveil/internal/domain"
)

// MasterPlaylist renders the adaptive-bitrate master playlist for the given
// results, sorted ascending by resolution regardless of input order. Output
// is deterministic: same result set, same bytes.
func MasterPlaylist(results []domain.QualityResult) string {
	sorted := make([]domain.QualityResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quality.Rank() < sorted[j].Quality.Rank()
	})

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, result := range sorted {
		preset, ok := domain.PresetFor(result.Quality)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n",
			preset.Bandwidth, preset.Width, preset.Height))
		b.WriteString(string(result.Quality) + "/playlist.m3u8\n")
	}

	return b.String()
}

// WriteMasterPlaylist writes the master playlist to outputDir/master.m3u8 and
// returns its path.
func WriteMasterPlaylist(results []domain.QualityResult, outputDir string) (string, error) {
	path := filepath.Join(outputDir, "master.m3u8")
	if err := os.WriteFile(path, []byte(MasterPlaylist(results)), 0o644); err != nil {
		return "", fmt.Errorf("write master playlist: %w", err)
	}
	return path, nil
}
