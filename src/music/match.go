package music

import (
	"math"
	"regexp"
)

// Match is one candidate identification of a recording, with a confidence
// score and whatever descriptive metadata the provider returned.
type Match struct {
	Score             float64   `json:"score"`
	RecordingID       string    `json:"recordingId"`
	Title             string    `json:"title,omitempty"`
	Artist            string    `json:"artist,omitempty"`
	ReleaseGroupID    string    `json:"releaseGroupId,omitempty"`
	ReleaseGroupTitle string    `json:"releaseGroupTitle,omitempty"`
	Releases          []Release `json:"releases,omitempty"`
}

// Release is a single release a matched recording appears on.
type Release struct {
	Title     string `json:"title,omitempty"`
	ReleaseID string `json:"releaseId,omitempty"`
	Date      string `json:"date,omitempty"`
	Country   string `json:"country,omitempty"`
}

// FingerprintResult is the output of the fingerprinting tool for one file.
type FingerprintResult struct {
	Fingerprint string  `json:"fingerprint"`
	Duration    float64 `json:"duration"`
}

// RoundedDuration returns the duration rounded to the nearest whole second.
// Cache keys use this so fingerprinting jitter doesn't fragment the cache.
func (f FingerprintResult) RoundedDuration() int {
	return int(math.Round(f.Duration))
}

var mbidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsMusicBrainzID reports whether id looks like a MusicBrainz identifier.
// Enrichment only runs for matches whose recording ID has this shape.
func IsMusicBrainzID(id string) bool {
	return mbidPattern.MatchString(id)
}

// releaseKey identifies a release for dedup purposes.
type releaseKey struct {
	title, id, date, country string
}

func (r Release) key() releaseKey {
	return releaseKey{title: r.Title, id: r.ReleaseID, date: r.Date, country: r.Country}
}

// MergeMatches collapses matches that reference the same recording. The
// highest score wins, descriptive fields are only filled when empty
// (preferring values that came with a matching release group ID), and
// release lists are unioned without duplicates. Merging is idempotent:
// feeding the same source twice produces the same result.
func MergeMatches(matches []Match) []Match {
	byRecording := make(map[string]*Match)
	order := make([]string, 0, len(matches))

	for i := range matches {
		m := matches[i]
		existing, ok := byRecording[m.RecordingID]
		if !ok {
			cp := m
			cp.Releases = dedupeReleases(nil, m.Releases)
			byRecording[m.RecordingID] = &cp
			order = append(order, m.RecordingID)
			continue
		}
		existing.Absorb(m)
	}

	merged := make([]Match, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byRecording[id])
	}
	return merged
}

// Absorb folds another match for the same recording into m.
func (m *Match) Absorb(other Match) {
	if other.RecordingID != m.RecordingID {
		return
	}
	if other.Score > m.Score {
		m.Score = other.Score
	}

	if m.Title == "" {
		m.Title = other.Title
	}
	if m.Artist == "" {
		m.Artist = other.Artist
	}
	if m.ReleaseGroupID == "" {
		m.ReleaseGroupID = other.ReleaseGroupID
	}
	// The group title is only trusted when it is paired with the group we
	// already settled on, or when no group has been settled yet.
	if m.ReleaseGroupTitle == "" {
		if m.ReleaseGroupID == "" || other.ReleaseGroupID == "" || other.ReleaseGroupID == m.ReleaseGroupID {
			m.ReleaseGroupTitle = other.ReleaseGroupTitle
		}
	}

	m.Releases = dedupeReleases(m.Releases, other.Releases)
}

// FillFrom copies rec's fields into empty slots of m and unions releases.
// Populated fields are never overwritten.
func (m *Match) FillFrom(rec EnrichmentRecord) bool {
	changed := false
	if m.Title == "" && rec.Title != "" {
		m.Title = rec.Title
		changed = true
	}
	if m.Artist == "" && rec.Artist != "" {
		m.Artist = rec.Artist
		changed = true
	}
	if m.ReleaseGroupID == "" && rec.ReleaseGroupID != "" {
		m.ReleaseGroupID = rec.ReleaseGroupID
		changed = true
	}
	if m.ReleaseGroupTitle == "" && rec.ReleaseGroupTitle != "" {
		m.ReleaseGroupTitle = rec.ReleaseGroupTitle
		changed = true
	}
	if len(rec.Releases) > 0 {
		before := len(m.Releases)
		m.Releases = dedupeReleases(m.Releases, rec.Releases)
		if len(m.Releases) != before {
			changed = true
		}
	}
	return changed
}

// EnrichmentRecord is what the enrichment provider knows about a recording.
type EnrichmentRecord struct {
	RecordingID       string
	Title             string
	Artist            string
	ReleaseGroupID    string
	ReleaseGroupTitle string
	Releases          []Release
}

func dedupeReleases(existing, incoming []Release) []Release {
	seen := make(map[releaseKey]bool, len(existing))
	out := make([]Release, 0, len(existing)+len(incoming))
	for _, r := range existing {
		k := r.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	for _, r := range incoming {
		k := r.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
