package acoustid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/music"
)

func testManager(endpoint, clientKey string) *config.Manager {
	cfg := config.Config{}
	cfg.Providers.AcoustID.Endpoint = endpoint
	cfg.Providers.AcoustID.ClientKey = clientKey
	return config.NewManager(&cfg)
}

func TestLookup_QueryParameters(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"client":      r.URL.Query().Get("client"),
			"duration":    r.URL.Query().Get("duration"),
			"fingerprint": r.URL.Query().Get("fingerprint"),
			"meta":        r.URL.Query().Get("meta"),
		}
		json.NewEncoder(w).Encode(Response{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(testManager(server.URL, "key123"))
	fp := music.FingerprintResult{Fingerprint: "AQAAf0mUaEkSRZ", Duration: 213.7}
	if _, err := client.Lookup(context.Background(), fp); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	if gotQuery["client"] != "key123" {
		t.Errorf("expected client key in query, got %q", gotQuery["client"])
	}
	if gotQuery["duration"] != "214" {
		t.Errorf("expected rounded duration 214, got %q", gotQuery["duration"])
	}
	if gotQuery["fingerprint"] != "AQAAf0mUaEkSRZ" {
		t.Errorf("unexpected fingerprint param %q", gotQuery["fingerprint"])
	}
	if gotQuery["meta"] == "" {
		t.Error("expected a meta param")
	}
}

func TestLookup_MissingClientKey(t *testing.T) {
	client := NewClient(testManager("http://localhost:1", ""))
	if _, err := client.Lookup(context.Background(), music.FingerprintResult{}); err == nil {
		t.Fatal("expected an error without a client key")
	}
}

func TestLookup_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":{"code":4,"message":"invalid API key"}}`))
	}))
	defer server.Close()

	client := NewClient(testManager(server.URL, "bad"))
	if _, err := client.Lookup(context.Background(), music.FingerprintResult{}); err == nil {
		t.Fatal("expected an error for status=error responses")
	}
}

func TestMatchesFromResponse_Flattening(t *testing.T) {
	raw := `{
	  "status": "ok",
	  "results": [{
	    "id": "res-1",
	    "score": 0.97,
	    "recordings": [{
	      "id": "b1a9c0e9-d987-4042-ae91-78d6a3267d69",
	      "title": "Song",
	      "artists": [{"id": "a1", "name": "First"}, {"id": "a2", "name": "Second"}],
	      "releasegroups": [{
	        "id": "rg-1",
	        "title": "Album",
	        "releases": [
	          {"id": "rel-1", "title": "Album", "country": "SE", "date": {"year": 2001, "month": 3, "day": 4}},
	          {"id": "rel-2", "title": "Album", "country": "US", "date": {"year": 2001}}
	        ]
	      }]
	    }, {
	      "id": "",
	      "title": "ignored"
	    }]
	  }]
	}`
	var response Response
	if err := json.Unmarshal([]byte(raw), &response); err != nil {
		t.Fatal(err)
	}

	matches := matchesFromResponse(response)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match (recordings without an ID are dropped), got %d", len(matches))
	}

	m := matches[0]
	if m.Score != 0.97 {
		t.Errorf("expected score 0.97, got %v", m.Score)
	}
	if m.Artist != "First; Second" {
		t.Errorf("expected joined artists, got %q", m.Artist)
	}
	if m.ReleaseGroupID != "rg-1" || m.ReleaseGroupTitle != "Album" {
		t.Errorf("expected first release group, got %q/%q", m.ReleaseGroupID, m.ReleaseGroupTitle)
	}
	if len(m.Releases) != 2 {
		t.Fatalf("expected 2 releases, got %d", len(m.Releases))
	}
	if m.Releases[0].Date != "2001-03-04" {
		t.Errorf("expected full date, got %q", m.Releases[0].Date)
	}
	if m.Releases[1].Date != "2001" {
		t.Errorf("expected year-only date, got %q", m.Releases[1].Date)
	}
}

func TestFormatDate(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             string
	}{
		{2001, 3, 4, "2001-03-04"},
		{2001, 3, 0, "2001-03"},
		{2001, 0, 0, "2001"},
	}
	for _, tc := range cases {
		if got := formatDate(tc.year, tc.month, tc.day); got != tc.want {
			t.Errorf("formatDate(%d,%d,%d) = %q, want %q", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}
