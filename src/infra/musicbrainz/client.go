package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/music"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://musicbrainz.org/ws/2"

	requestTimeout = 10 * time.Second
)

// Client looks up recordings in the MusicBrainz web service. It implements
// the enrichment provider of the identify feature. MusicBrainz requires at
// most one request per second, so calls share a rate limiter.
type Client struct {
	config     *config.Manager
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new MusicBrainz client.
func NewClient(cfg *config.Manager) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type recordingResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ArtistCredit []struct {
		Name       string `json:"name"`
		JoinPhrase string `json:"joinphrase"`
	} `json:"artist-credit"`
	Releases []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Date    string `json:"date"`
		Country string `json:"country"`

		ReleaseGroup struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"release-group"`
	} `json:"releases"`
}

// LookupByID fetches a recording with its releases and release groups.
// A 404 from the service yields (nil, nil): the ID is simply unknown.
func (c *Client) LookupByID(ctx context.Context, recordingID string) (*music.EnrichmentRecord, error) {
	cfg := c.config.Get().Providers.MusicBrainz

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	url := fmt.Sprintf("%s/recording/%s?inc=artist-credits+releases+release-groups&fmt=json",
		strings.TrimRight(endpoint, "/"), recordingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query MusicBrainz API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("MusicBrainz API returned status: %d", resp.StatusCode)
	}

	var rec recordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to parse MusicBrainz response: %w", err)
	}

	return recordFromResponse(rec), nil
}

func recordFromResponse(rec recordingResponse) *music.EnrichmentRecord {
	record := &music.EnrichmentRecord{
		RecordingID: rec.ID,
		Title:       rec.Title,
		Artist:      creditedArtist(rec),
	}
	for _, rel := range rec.Releases {
		if record.ReleaseGroupID == "" && rel.ReleaseGroup.ID != "" {
			record.ReleaseGroupID = rel.ReleaseGroup.ID
			record.ReleaseGroupTitle = rel.ReleaseGroup.Title
		}
		record.Releases = append(record.Releases, music.Release{
			Title:     rel.Title,
			ReleaseID: rel.ID,
			Date:      rel.Date,
			Country:   rel.Country,
		})
	}
	return record
}

// creditedArtist renders the artist credit the way MusicBrainz displays it,
// join phrases included.
func creditedArtist(rec recordingResponse) string {
	var b strings.Builder
	for _, credit := range rec.ArtistCredit {
		b.WriteString(credit.Name)
		b.WriteString(credit.JoinPhrase)
	}
	return b.String()
}
