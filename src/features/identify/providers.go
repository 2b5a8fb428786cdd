package identify

import (
	"context"

	"github.com/lunefort/tuneid/src/music"
)

// FingerprintProvider computes the acoustic fingerprint for an audio file.
type FingerprintProvider interface {
	Compute(ctx context.Context, audioRef string) (music.FingerprintResult, error)
}

// PrimaryLookupProvider resolves a fingerprint against the main recognition
// service (AcoustID). A failed call is fatal to the resolution.
type PrimaryLookupProvider interface {
	Lookup(ctx context.Context, fp music.FingerprintResult) ([]music.Match, error)
}

// FallbackLookupProvider recognizes a recording by uploading audio directly
// (AudD). Standard mode uploads a snippet; enterprise mode supports offset
// scanning parameters. Failures are soft; the resolution continues.
type FallbackLookupProvider interface {
	RecognizeStandard(ctx context.Context, cfg FallbackConfig, audioRef string) ([]music.Match, error)
	RecognizeEnterprise(ctx context.Context, cfg FallbackConfig, audioRef string) ([]music.Match, error)
}

// EnrichmentProvider fills in metadata for an already-identified recording
// (MusicBrainz). A nil record with a nil error means the ID is unknown.
type EnrichmentProvider interface {
	LookupByID(ctx context.Context, recordingID string) (*music.EnrichmentRecord, error)
}

// MetadataExtractor reads local tags from the audio file. Best effort: it
// returns nil when nothing useful could be read and never fails.
type MetadataExtractor interface {
	Extract(ctx context.Context, audioRef string) map[string]string
}

// Callbacks is a one-way notification sink. Implementations may do I/O but
// must never block or fail a resolution; panics are swallowed by the caller.
type Callbacks interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}
