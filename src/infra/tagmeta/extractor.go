package tagmeta

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/dhowden/tag"
)

// Extractor reads embedded tags from a local audio file. It backs the
// identify feature's local-metadata fallback and is strictly best effort:
// any failure yields nil, never an error.
type Extractor struct{}

// NewExtractor creates a new tag extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns whatever descriptive tags the file carries, or nil.
func (e *Extractor) Extract(ctx context.Context, audioRef string) map[string]string {
	f, err := os.Open(audioRef)
	if err != nil {
		slog.Debug("Cannot open file for tag extraction", "file", audioRef, "error", err)
		return nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("No readable tags in file", "file", audioRef, "error", err)
		return nil
	}

	fields := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("title", meta.Title())
	put("artist", meta.Artist())
	put("album", meta.Album())
	put("album_artist", meta.AlbumArtist())
	put("genre", meta.Genre())
	put("composer", meta.Composer())
	if year := meta.Year(); year > 0 {
		fields["year"] = strconv.Itoa(year)
	}
	if track, _ := meta.Track(); track > 0 {
		fields["track"] = strconv.Itoa(track)
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
