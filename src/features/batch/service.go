package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/config"
	"github.com/lunefort/tuneid/src/features/identify"
)

// Stats summarizes a directory run.
type Stats struct {
	Identified int `json:"identified"`
	NoMatch    int `json:"noMatch"`
	Errors     int `json:"errors"`
}

// Service runs identification over every audio file in a directory, one
// file at a time. Sequential on purpose: the upstream providers are rate
// limited and a parallel walk would only trade provider errors for speed.
type Service struct {
	identify *identify.Service
	config   *config.Manager
	policy   access.AccessPolicy
	quota    access.QuotaPolicy
}

// NewService creates a batch service.
func NewService(identifySvc *identify.Service, cfg *config.Manager, policy access.AccessPolicy, quota access.QuotaPolicy) *Service {
	return &Service{
		identify: identifySvc,
		config:   cfg,
		policy:   policy,
		quota:    quota,
	}
}

// FileResult records the outcome for a single file in the run.
type FileResult struct {
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunDirectory identifies every supported file under path on behalf of user.
// Access is checked once for the batch; per-file quota is enforced by the
// resolution itself. A quota or access rejection mid-run aborts the batch,
// since every remaining file would hit the same wall.
func (s *Service) RunDirectory(ctx context.Context, path string, user *access.ServiceUser, progress func(int, string)) (Stats, []FileResult, error) {
	var stats Stats
	var results []FileResult

	if err := s.policy.EnsureFeature(user, access.FeatureIdentifyBatch); err != nil {
		return stats, nil, err
	}

	files, err := s.collectFiles(path)
	if err != nil {
		return stats, nil, err
	}
	slog.Info("Starting batch identification", "path", path, "files", len(files))

	cfg := s.config.Get()
	for i, file := range files {
		if ctx.Err() != nil {
			return stats, results, ctx.Err()
		}

		req := identify.RequestFromConfig(cfg, file)
		resp, err := s.identify.Resolve(ctx, req, user, s.policy, s.quota)
		switch {
		case err != nil && (errors.Is(err, access.ErrQuotaExceeded) || errors.Is(err, access.ErrAccessDenied)):
			return stats, results, err
		case err != nil:
			stats.Errors++
			results = append(results, FileResult{Path: file, Error: err.Error()})
			slog.Warn("Batch file failed", "file", file, "error", err)
		case len(resp.Matches) == 0:
			stats.NoMatch++
			results = append(results, FileResult{Path: file})
		default:
			stats.Identified++
			best := resp.Matches[0]
			results = append(results, FileResult{
				Path:   file,
				Title:  best.Title,
				Artist: best.Artist,
				Source: string(resp.MatchSource),
			})
		}

		if progress != nil {
			pct := ((i + 1) * 100) / len(files)
			progress(pct, fmt.Sprintf("Processed: %s", filepath.Base(file)))
		}
	}

	return stats, results, nil
}

// collectFiles walks path and returns supported audio files in walk order.
func (s *Service) collectFiles(path string) ([]string, error) {
	supported := make(map[string]bool)
	for _, ext := range s.config.Get().Batch.Extensions {
		supported[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if supported[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return files, nil
}

// UserByID resolves a configured user ID to a service user. Unknown IDs get
// the anonymous user, which the policy will reject if users are configured.
func (s *Service) UserByID(id string) *access.ServiceUser {
	for _, u := range s.config.Get().Users {
		if u.ID == id {
			return access.NewServiceUser(u.ID, u.Roles, u.Features, u.QuotaLimits)
		}
	}
	return access.Anonymous()
}
