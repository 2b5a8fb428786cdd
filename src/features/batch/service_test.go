package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/identify"
	"github.com/lunefort/tuneid/src/features/matchcache"
	"github.com/lunefort/tuneid/src/music"
)

type stubFingerprinter struct{}

func (stubFingerprinter) Compute(ctx context.Context, audioRef string) (music.FingerprintResult, error) {
	return music.FingerprintResult{Fingerprint: "fp:" + audioRef, Duration: 100}, nil
}

// stubPrimary matches files whose base name starts with "hit" and fails on
// names starting with "bad".
type stubPrimary struct {
	calls []string
}

func (p *stubPrimary) Lookup(ctx context.Context, fp music.FingerprintResult) ([]music.Match, error) {
	p.calls = append(p.calls, fp.Fingerprint)
	base := filepath.Base(fp.Fingerprint)
	switch {
	case len(base) >= 3 && base[:3] == "bad":
		return nil, errors.New("provider failure")
	case len(base) >= 3 && base[:3] == "hit":
		return []music.Match{{RecordingID: "rec-" + base, Score: 0.9, Title: "Song", Artist: "Band"}}, nil
	default:
		return nil, nil
	}
}

func testBatchService(t *testing.T, users []config.User, policy access.AccessPolicy, quota access.QuotaPolicy) (*Service, *stubPrimary) {
	t.Helper()
	cfg := config.Config{Users: users}
	cfg.Batch.Extensions = []string{".mp3", ".flac"}
	manager := config.NewManager(&cfg)

	primary := &stubPrimary{}
	cache := matchcache.New("", 0, false)
	identifySvc := identify.NewService(stubFingerprinter{}, primary, nil, nil, nil, cache, nil, nil)
	return NewService(identifySvc, manager, policy, quota), primary
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunDirectory_StatsPerOutcome(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "hit1.mp3", "hit2.flac", "miss.mp3", "bad.mp3", "notes.txt", "cover.jpg")

	svc, primary := testBatchService(t, nil, access.AllowAllPolicy{}, access.UnlimitedQuota{})
	stats, results, err := svc.RunDirectory(context.Background(), dir, access.Anonymous(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if stats.Identified != 2 || stats.NoMatch != 1 || stats.Errors != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(results) != 4 {
		t.Errorf("unsupported files must be skipped, got %d results", len(results))
	}
	if len(primary.calls) != 4 {
		t.Errorf("expected 4 provider calls, got %d", len(primary.calls))
	}
}

func TestRunDirectory_AccessDenied(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "hit1.mp3")

	svc, primary := testBatchService(t, nil, access.AttributePolicy{}, access.UnlimitedQuota{})
	_, _, err := svc.RunDirectory(context.Background(), dir, access.Anonymous(), nil)
	if !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for a caller without the batch feature, got %v", err)
	}
	if len(primary.calls) != 0 {
		t.Error("a denied batch must not touch any provider")
	}
}

type rejectAfterQuota struct {
	remaining int
}

func (q *rejectAfterQuota) Consume(ctx context.Context, user *access.ServiceUser, scope access.QuotaScope, cost int) error {
	if q.remaining <= 0 {
		return &access.QuotaError{UserID: "tester", Scope: scope, Usage: 1, Limit: 1}
	}
	q.remaining -= cost
	return nil
}

func TestRunDirectory_QuotaExhaustionAborts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "hit1.mp3", "hit2.mp3", "hit3.mp3")

	svc, _ := testBatchService(t, nil, access.AllowAllPolicy{}, &rejectAfterQuota{remaining: 1})
	stats, _, err := svc.RunDirectory(context.Background(), dir, access.Anonymous(), nil)
	if !errors.Is(err, access.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded to abort the batch, got %v", err)
	}
	if stats.Identified != 1 {
		t.Errorf("expected 1 file processed before the wall, got %+v", stats)
	}
}

func TestRunDirectory_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "hit1.mp3", "hit2.mp3")

	svc, _ := testBatchService(t, nil, access.AllowAllPolicy{}, access.UnlimitedQuota{})
	var percents []int
	_, _, err := svc.RunDirectory(context.Background(), dir, access.Anonymous(), func(pct int, msg string) {
		percents = append(percents, pct)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(percents) != 2 || percents[len(percents)-1] != 100 {
		t.Errorf("expected progress ending at 100, got %v", percents)
	}
}

func TestUserByID(t *testing.T) {
	users := []config.User{{ID: "alice", Roles: []string{"admin"}, Features: []string{"identify"}}}
	svc, _ := testBatchService(t, users, access.AllowAllPolicy{}, access.UnlimitedQuota{})

	alice := svc.UserByID("alice")
	if alice.UserID != "alice" || !alice.Roles["admin"] {
		t.Errorf("expected the configured user, got %+v", alice)
	}
	if !svc.UserByID("nobody").IsAnonymous() {
		t.Error("unknown IDs must resolve to the anonymous user")
	}
}
