package identify

import (
	"context"
	"log/slog"

	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/music"
)

// resolveMode picks the execution mode for the fallback provider.
// An explicitly configured mode always wins over the auto heuristics;
// the force flag wins over everything.
func resolveMode(cfg FallbackConfig) FallbackMode {
	if cfg.ForceEnterprise {
		return ModeEnterprise
	}
	switch cfg.Mode {
	case ModeStandard, ModeEnterprise:
		return cfg.Mode
	}
	if cfg.Enterprise.Any() {
		return ModeEnterprise
	}
	return ModeStandard
}

func scopeForMode(mode FallbackMode) access.QuotaScope {
	if mode == ModeEnterprise {
		return access.ScopeFallbackEnterpriseLookup
	}
	return access.ScopeFallbackStandardLookup
}

func otherMode(mode FallbackMode) FallbackMode {
	if mode == ModeEnterprise {
		return ModeStandard
	}
	return ModeEnterprise
}

// recognize executes one fallback mode against the provider.
func (s *Service) recognize(ctx context.Context, mode FallbackMode, cfg FallbackConfig, audioRef string) ([]music.Match, error) {
	if mode == ModeEnterprise {
		return s.fallback.RecognizeEnterprise(ctx, cfg, audioRef)
	}
	return s.fallback.RecognizeStandard(ctx, cfg, audioRef)
}

// recognizeWithModeFallback runs the resolved mode and, when it comes back
// empty or failed and the alternate-mode retry is enabled, tries the other
// mode exactly once. The retry is metered under its own scope before it
// executes; a quota rejection there is fatal like any other.
func (s *Service) recognizeWithModeFallback(ctx context.Context, req *IdentifyRequest, user *access.ServiceUser, quota access.QuotaPolicy, mode FallbackMode) ([]music.Match, string, error) {
	matches, err := s.recognize(ctx, mode, req.Fallback, req.AudioRef)
	if err == nil && len(matches) > 0 {
		return matches, "", nil
	}
	if !req.Fallback.EnterpriseFallback {
		if err != nil {
			return nil, "", fallbackError(err)
		}
		return matches, "", nil
	}

	secondary := otherMode(mode)
	slog.Debug("Retrying fallback provider with alternate mode", "primaryMode", mode, "secondaryMode", secondary)
	if qerr := quota.Consume(ctx, user, scopeForMode(secondary), 1); qerr != nil {
		return nil, "", qerr
	}

	note := "retried fallback provider in " + string(secondary) + " mode"
	retried, rerr := s.recognize(ctx, secondary, req.Fallback, req.AudioRef)
	if rerr != nil {
		return nil, note, fallbackError(rerr)
	}
	if len(retried) == 0 && err != nil {
		// The retry recovered nothing, so the first attempt's failure is
		// still the outcome to record.
		return retried, note, fallbackError(err)
	}
	return retried, note, nil
}
