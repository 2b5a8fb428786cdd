package acoustid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/music"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://api.acoustid.org/v2/lookup"

	// AcoustID allows 3 requests per second per client key.
	requestsPerSecond = 3

	requestTimeout = 10 * time.Second
)

// Response represents a response from the AcoustID API.
type Response struct {
	Status string `json:"status"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Results []Result `json:"results"`
}

// Result represents a single result from AcoustID.
type Result struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []Recording `json:"recordings"`
}

// Recording represents recording information from AcoustID.
type Recording struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	ReleaseGroups []ReleaseGroup `json:"releasegroups"`
}

// ReleaseGroup represents a release group attached to a recording.
type ReleaseGroup struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Releases []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Country string `json:"country"`
		Date    *struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"date"`
	} `json:"releases"`
}

// Client queries the AcoustID lookup API by fingerprint. It implements the
// primary lookup provider of the identify feature.
type Client struct {
	config     *config.Manager
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new AcoustID client.
func NewClient(cfg *config.Manager) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), 1),
	}
}

// Lookup queries AcoustID for recordings matching the given fingerprint.
func (c *Client) Lookup(ctx context.Context, fp music.FingerprintResult) ([]music.Match, error) {
	cfg := c.config.Get().Providers.AcoustID
	if cfg.ClientKey == "" {
		return nil, fmt.Errorf("acoustid client key not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	params := url.Values{}
	params.Set("client", cfg.ClientKey)
	params.Set("meta", "recordings+releasegroups+releases+compress")
	params.Set("duration", strconv.Itoa(fp.RoundedDuration()))
	params.Set("fingerprint", fp.Fingerprint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query AcoustID API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AcoustID API returned status: %d", resp.StatusCode)
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse AcoustID response: %w", err)
	}
	if response.Status != "ok" {
		if response.Error != nil {
			return nil, fmt.Errorf("AcoustID API error: %s", response.Error.Message)
		}
		return nil, fmt.Errorf("AcoustID API returned status: %s", response.Status)
	}

	return matchesFromResponse(response), nil
}

// matchesFromResponse flattens the AcoustID result buckets into matches,
// one per (result, recording) pair. The identify feature merges duplicates
// afterwards.
func matchesFromResponse(response Response) []music.Match {
	var matches []music.Match
	for _, result := range response.Results {
		for _, rec := range result.Recordings {
			if rec.ID == "" {
				continue
			}
			m := music.Match{
				Score:       result.Score,
				RecordingID: rec.ID,
				Title:       rec.Title,
				Artist:      joinArtists(rec),
			}
			if len(rec.ReleaseGroups) > 0 {
				rg := rec.ReleaseGroups[0]
				m.ReleaseGroupID = rg.ID
				m.ReleaseGroupTitle = rg.Title
			}
			for _, rg := range rec.ReleaseGroups {
				for _, rel := range rg.Releases {
					release := music.Release{
						Title:     rel.Title,
						ReleaseID: rel.ID,
						Country:   rel.Country,
					}
					if rel.Date != nil && rel.Date.Year > 0 {
						release.Date = formatDate(rel.Date.Year, rel.Date.Month, rel.Date.Day)
					}
					m.Releases = append(m.Releases, release)
				}
			}
			matches = append(matches, m)
		}
	}
	return matches
}

func joinArtists(rec Recording) string {
	names := make([]string, 0, len(rec.Artists))
	for _, a := range rec.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, "; ")
}

func formatDate(year, month, day int) string {
	switch {
	case month > 0 && day > 0:
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	case month > 0:
		return fmt.Sprintf("%04d-%02d", year, month)
	default:
		return fmt.Sprintf("%04d", year)
	}
}
