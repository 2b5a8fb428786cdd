package audd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/identify"
)

func testAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snippet.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testClient() *Client {
	return NewClient(config.NewManager(&config.Config{}))
}

func TestRecognizeStandard_NullResultMeansNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","result":null}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	matches, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t))
	if err != nil {
		t.Fatalf("a null result is not an error: %v", err)
	}
	if matches != nil {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestRecognizeStandard_MatchWithMusicBrainzID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"result": {
				"title": "Song",
				"artist": "The Band",
				"album": "Album",
				"release_date": "2001-03-04",
				"musicbrainz": [{"id": "b1a9c0e9-d987-4042-ae91-78d6a3267d69", "title": "Song"}]
			}
		}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	matches, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t))
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.RecordingID != "b1a9c0e9-d987-4042-ae91-78d6a3267d69" {
		t.Errorf("expected the MusicBrainz ID as identity, got %q", m.RecordingID)
	}
	if m.Score != 1.0 {
		t.Errorf("standard recognitions carry score 1.0, got %v", m.Score)
	}
	if m.ReleaseGroupTitle != "Album" || len(m.Releases) != 1 || m.Releases[0].Date != "2001-03-04" {
		t.Errorf("album mapping wrong: %+v", m)
	}
}

func TestRecognizeStandard_SyntheticIDWithoutMusicBrainz(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","result":{"title":"Some Title","artist":"Some Artist"}}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	matches, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].RecordingID != "audd:some-artist-some-title" {
		t.Errorf("expected synthetic ID, got %q", matches[0].RecordingID)
	}
}

func TestRecognizeStandard_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":{"error_code":901,"error_message":"limit reached"}}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	if _, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t)); err == nil {
		t.Fatal("expected an error for status=error responses")
	}
}

func TestRecognizeStandard_SendsFormFields(t *testing.T) {
	var token, ret, offset string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		token = r.FormValue("api_token")
		ret = r.FormValue("return")
		offset = r.FormValue("offset")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected a file part: %v", err)
		}
		w.Write([]byte(`{"status":"success","result":null}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL, SnippetOffset: 30}
	if _, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t)); err != nil {
		t.Fatal(err)
	}
	if token != "tok" || ret != "musicbrainz" || offset != "30" {
		t.Errorf("unexpected fields: token=%q return=%q offset=%q", token, ret, offset)
	}
}

func TestRecognizeEnterprise_FlattensOffsetBuckets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"result": [
				{"offset": "00:00", "songs": [{"title": "First", "artist": "A", "score": 85}]},
				{"offset": "01:30", "songs": [{"title": "Second", "artist": "B", "score": 250}]}
			]
		}`))
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	matches, err := testClient().RecognizeEnterprise(context.Background(), cfg, testAudioFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Score != 0.85 {
		t.Errorf("expected normalized score 0.85, got %v", matches[0].Score)
	}
	if matches[1].Score != 1.0 {
		t.Errorf("out-of-range scores clamp to 1.0, got %v", matches[1].Score)
	}
}

func TestRecognizeEnterprise_SendsScanParameters(t *testing.T) {
	got := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		for _, key := range []string{"skip", "every", "limit", "skip_first_seconds", "accurate_offsets", "use_timecode"} {
			got[key] = r.FormValue(key)
		}
		w.Write([]byte(`{"status":"success","result":[]}`))
	}))
	defer server.Close()

	every := 30.0
	limit := 3
	skipFirst := 10.5
	cfg := identify.FallbackConfig{
		Token:    "tok",
		Endpoint: server.URL,
		Enterprise: identify.EnterpriseParams{
			Skip:             []int{0, 60, 120},
			Every:            &every,
			Limit:            &limit,
			SkipFirstSeconds: &skipFirst,
			AccurateOffsets:  true,
			UseTimecode:      true,
		},
	}
	if _, err := testClient().RecognizeEnterprise(context.Background(), cfg, testAudioFile(t)); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"skip":               "0,60,120",
		"every":              "30",
		"limit":              "3",
		"skip_first_seconds": "10.5",
		"accurate_offsets":   "true",
		"use_timecode":       "true",
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("field %q = %q, want %q", key, got[key], value)
		}
	}
}

func TestRecognizeStandard_MissingFile(t *testing.T) {
	cfg := identify.FallbackConfig{Token: "tok", Endpoint: "http://localhost:1"}
	if _, err := testClient().RecognizeStandard(context.Background(), cfg, "/does/not/exist.mp3"); err == nil {
		t.Fatal("expected an error for a missing audio file")
	}
}

func TestRecognizeStandard_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := identify.FallbackConfig{Token: "tok", Endpoint: server.URL}
	if _, err := testClient().RecognizeStandard(context.Background(), cfg, testAudioFile(t)); err == nil {
		t.Fatal("expected an error for non-200 responses")
	}
}
