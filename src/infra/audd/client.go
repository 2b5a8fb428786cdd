package audd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/identify"
	"github.com/lunefort/tuneid/src/music"
)

const (
	defaultEndpoint           = "https://api.audd.io/"
	defaultEnterpriseEndpoint = "https://enterprise.audd.io/"

	requestTimeout = 30 * time.Second
)

// Client recognizes audio through the AudD API by uploading the file. It
// implements the fallback lookup provider of the identify feature.
type Client struct {
	config     *config.Manager
	httpClient *http.Client
}

// NewClient creates a new AudD client.
func NewClient(cfg *config.Manager) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type apiErrorBody struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// standardResponse is the standard-mode API envelope. Result is null when
// nothing was recognized.
type standardResponse struct {
	Status string        `json:"status"`
	Error  *apiErrorBody `json:"error,omitempty"`
	Result *song         `json:"result"`
}

// enterpriseResponse is the enterprise-mode envelope; every offset bucket
// carries its own candidate songs.
type enterpriseResponse struct {
	Status string        `json:"status"`
	Error  *apiErrorBody `json:"error,omitempty"`
	Result []struct {
		Offset string `json:"offset"`
		Songs  []song `json:"songs"`
	} `json:"result"`
}

type song struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	ReleaseDate string  `json:"release_date"`
	Score       float64 `json:"score"`
	MusicBrainz []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"musicbrainz"`
}

// RecognizeStandard uploads the audio for single-shot recognition.
func (c *Client) RecognizeStandard(ctx context.Context, cfg identify.FallbackConfig, audioRef string) ([]music.Match, error) {
	fields := map[string]string{
		"api_token": cfg.Token,
		"return":    "musicbrainz",
	}
	if cfg.SnippetOffset > 0 {
		fields["offset"] = strconv.FormatFloat(cfg.SnippetOffset, 'f', -1, 64)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = c.configuredEndpoint(false)
	}

	body, err := c.post(ctx, endpoint, audioRef, fields)
	if err != nil {
		return nil, err
	}

	var response standardResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse AudD response: %w", err)
	}
	if response.Status != "success" {
		return nil, apiError(response.Status, response.Error)
	}
	if response.Result == nil {
		return nil, nil
	}
	// Standard mode returns a definite recognition, not a scored candidate.
	return []music.Match{matchFromSong(*response.Result, 1.0)}, nil
}

// RecognizeEnterprise uploads the audio for offset-scanning recognition.
func (c *Client) RecognizeEnterprise(ctx context.Context, cfg identify.FallbackConfig, audioRef string) ([]music.Match, error) {
	fields := map[string]string{
		"api_token": cfg.Token,
		"return":    "musicbrainz",
	}
	p := cfg.Enterprise
	if len(p.Skip) > 0 {
		parts := make([]string, len(p.Skip))
		for i, v := range p.Skip {
			parts[i] = strconv.Itoa(v)
		}
		fields["skip"] = strings.Join(parts, ",")
	}
	if p.Every != nil {
		fields["every"] = strconv.FormatFloat(*p.Every, 'f', -1, 64)
	}
	if p.Limit != nil {
		fields["limit"] = strconv.Itoa(*p.Limit)
	}
	if p.SkipFirstSeconds != nil {
		fields["skip_first_seconds"] = strconv.FormatFloat(*p.SkipFirstSeconds, 'f', -1, 64)
	}
	if p.AccurateOffsets {
		fields["accurate_offsets"] = "true"
	}
	if p.UseTimecode {
		fields["use_timecode"] = "true"
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = c.configuredEndpoint(true)
	}

	body, err := c.post(ctx, endpoint, audioRef, fields)
	if err != nil {
		return nil, err
	}

	var response enterpriseResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse AudD enterprise response: %w", err)
	}
	if response.Status != "success" {
		return nil, apiError(response.Status, response.Error)
	}

	var matches []music.Match
	for _, bucket := range response.Result {
		for _, s := range bucket.Songs {
			score := s.Score / 100
			if score <= 0 || score > 1 {
				score = 1.0
			}
			matches = append(matches, matchFromSong(s, score))
		}
	}
	return matches, nil
}

func (c *Client) configuredEndpoint(enterprise bool) string {
	audd := c.config.Get().Providers.Audd
	if enterprise {
		if audd.EnterpriseEndpoint != "" {
			return audd.EnterpriseEndpoint
		}
		return defaultEnterpriseEndpoint
	}
	if audd.Endpoint != "" {
		return audd.Endpoint
	}
	return defaultEndpoint
}

// post uploads the audio file with the given form fields and returns the
// raw response body.
func (c *Client) post(ctx context.Context, endpoint, audioRef string, fields map[string]string) ([]byte, error) {
	file, err := os.Open(audioRef)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to encode form field %s: %w", key, err)
		}
	}
	part, err := writer.CreateFormFile("file", file.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query AudD API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AudD API returned status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func apiError(status string, apiErr *apiErrorBody) error {
	if apiErr != nil {
		return fmt.Errorf("AudD API error %d: %s", apiErr.ErrorCode, apiErr.ErrorMessage)
	}
	return fmt.Errorf("AudD API returned status: %s", status)
}

// matchFromSong maps an AudD song onto the match model. The MusicBrainz
// recording ID is preferred as the identity key so enrichment can run;
// songs without one get a synthetic key derived from artist and title.
func matchFromSong(s song, score float64) music.Match {
	m := music.Match{
		Score:  score,
		Title:  s.Title,
		Artist: s.Artist,
	}
	if len(s.MusicBrainz) > 0 && s.MusicBrainz[0].ID != "" {
		m.RecordingID = s.MusicBrainz[0].ID
	} else {
		m.RecordingID = syntheticID(s.Artist, s.Title)
	}
	if s.Album != "" {
		m.ReleaseGroupTitle = s.Album
		m.Releases = []music.Release{{
			Title: s.Album,
			Date:  s.ReleaseDate,
		}}
	}
	return m
}

func syntheticID(artist, title string) string {
	slug := strings.ToLower(strings.TrimSpace(artist + "-" + title))
	return "audd:" + strings.ReplaceAll(slug, " ", "-")
}
