package matchcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lunefort/tuneid/src/music"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return New(path, ttl, true)
}

func TestCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	matches := []music.Match{{RecordingID: "rec-1", Score: 0.9, Title: "Song"}}

	cache.Set("fp", 120.0, matches)

	got, ok := cache.Get("fp", 120.0)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].RecordingID != "rec-1" {
		t.Errorf("unexpected matches: %+v", got)
	}
}

func TestCache_DurationRoundingSharesKey(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	cache.Set("fp", 119.6, []music.Match{{RecordingID: "rec-1"}})

	// 119.6 and 120.3 both round to 120.
	if _, ok := cache.Get("fp", 120.3); !ok {
		t.Error("expected durations rounding to the same second to share a key")
	}
	// 119.4 rounds to 119, a different key.
	if _, ok := cache.Get("fp", 119.4); ok {
		t.Error("expected a different rounded duration to miss")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	cache.Set("fp", 60, []music.Match{{RecordingID: "rec-1"}})

	cache.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, ok := cache.Get("fp", 60); !ok {
		t.Error("entry inside the TTL should hit")
	}

	cache.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, ok := cache.Get("fp", 60); ok {
		t.Error("entry past the TTL should miss")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	cache := newTestCache(t, 0)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }
	cache.Set("fp", 60, []music.Match{{RecordingID: "rec-1"}})

	cache.now = func() time.Time { return base.Add(10000 * time.Hour) }
	if _, ok := cache.Get("fp", 60); !ok {
		t.Error("zero TTL entries must never expire")
	}
}

func TestCache_EmptyMatchListIsCached(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	cache.Set("fp", 60, []music.Match{})

	got, ok := cache.Get("fp", 60)
	if !ok {
		t.Fatal("an empty result is still a valid cache entry")
	}
	if len(got) != 0 {
		t.Errorf("expected empty matches, got %+v", got)
	}
}

func TestCache_DisabledIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := New(path, time.Hour, false)

	cache.Set("fp", 60, []music.Match{{RecordingID: "rec-1"}})
	if _, ok := cache.Get("fp", 60); ok {
		t.Error("disabled cache must never hit")
	}
	if err := cache.Save(); err != nil {
		t.Fatalf("disabled save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("disabled cache must not touch the filesystem")
	}
}

func TestCache_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first := New(path, time.Hour, true)
	first.Set("fp", 60, []music.Match{{RecordingID: "rec-1", Title: "Song"}})
	if err := first.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	second := New(path, time.Hour, true)
	got, ok := second.Get("fp", 60)
	if !ok {
		t.Fatal("expected reloaded cache to hit")
	}
	if got[0].Title != "Song" {
		t.Errorf("unexpected reloaded entry: %+v", got[0])
	}
}

func TestCache_SaveSkippedWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := New(path, time.Hour, true)

	cache.Get("fp", 60)
	if err := cache.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a clean cache must not write its file")
	}
}

func TestCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cache := New(path, time.Hour, true)
	if _, ok := cache.Get("fp", 60); ok {
		t.Error("corrupt cache file should read as empty")
	}

	// The cache must still be usable for writes afterwards.
	cache.Set("fp", 60, []music.Match{{RecordingID: "rec-1"}})
	if err := cache.Save(); err != nil {
		t.Fatalf("save after corrupt load failed: %v", err)
	}
}

func TestCache_Clear(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	cache.Set("fp", 60, []music.Match{{RecordingID: "rec-1"}})

	cache.Clear()
	if _, ok := cache.Get("fp", 60); ok {
		t.Error("expected cleared cache to miss")
	}
}
