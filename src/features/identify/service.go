package identify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/matchcache"
	"github.com/lunefort/tuneid/src/features/metrics"
	"github.com/lunefort/tuneid/src/music"
)

// Service is the identification resolution engine. It sequences cache
// lookup, provider selection and fallback, enrichment and the local
// metadata fallback into one synchronous resolution, gating every provider
// call behind the caller's access and quota policies.
type Service struct {
	fingerprinter FingerprintProvider
	primary       PrimaryLookupProvider
	fallback      FallbackLookupProvider
	enricher      EnrichmentProvider
	extractor     MetadataExtractor
	cache         *matchcache.Cache
	callbacks     Callbacks
	recorder      *metrics.Recorder
}

// NewService creates an identify service. fallback, enricher, extractor,
// callbacks and recorder may be nil; the matching stages are then skipped.
func NewService(
	fingerprinter FingerprintProvider,
	primary PrimaryLookupProvider,
	fallback FallbackLookupProvider,
	enricher EnrichmentProvider,
	extractor MetadataExtractor,
	cache *matchcache.Cache,
	callbacks Callbacks,
	recorder *metrics.Recorder,
) *Service {
	return &Service{
		fingerprinter: fingerprinter,
		primary:       primary,
		fallback:      fallback,
		enricher:      enricher,
		extractor:     extractor,
		cache:         cache,
		callbacks:     callbacks,
		recorder:      recorder,
	}
}

// Cache exposes the match cache for maintenance endpoints.
func (s *Service) Cache() *matchcache.Cache { return s.cache }

// Resolve runs one identification resolution end to end. Matches in the
// response are never nil. Fatal errors (fingerprinting, primary lookup,
// access denial, quota rejection) abort the resolution; fallback and
// enrichment failures are absorbed into the response.
func (s *Service) Resolve(ctx context.Context, req *IdentifyRequest, user *access.ServiceUser, policy access.AccessPolicy, quota access.QuotaPolicy) (*IdentifyResponse, error) {
	reqID := uuid.New().String()[:8]
	log := slog.With("request", reqID, "audio", req.AudioRef, "user", userID(user))

	if err := policy.EnsureFeature(user, access.FeatureIdentify); err != nil {
		s.recorder.AccessDenied(string(access.FeatureIdentify))
		return nil, err
	}

	fp, err := s.fingerprinter.Compute(ctx, req.AudioRef)
	if err != nil {
		log.Error("Fingerprinting failed", "error", err)
		return nil, fingerprintError(err)
	}
	log.Debug("Fingerprint computed", "duration", fp.Duration, "fingerprintLen", len(fp.Fingerprint))

	resp := &IdentifyResponse{
		Fingerprint: fp,
		Matches:     []music.Match{},
	}
	useCache := s.cache != nil && s.cache.Enabled() && !req.DisableCache

	// The cache must be flushed on every exit path that follows a mutation;
	// Save is a no-op unless the cache is dirty.
	defer func() {
		if !useCache {
			return
		}
		if err := s.cache.Save(); err != nil {
			log.Warn("Failed to flush match cache", "error", err)
		}
	}()

	cacheHit := false
	if useCache && !req.ForceRefresh {
		if cached, ok := s.cache.Get(fp.Fingerprint, fp.Duration); ok {
			// An empty cached list is a hit too: it remembers that the
			// primary provider had nothing for this fingerprint.
			cacheHit = true
			s.recorder.CacheLookup("hit")
			log.Debug("Cache hit", "matches", len(cached))
			if len(cached) > 0 {
				resp.Matches = cached
				resp.MatchSource = SourcePrimary
			}
		} else {
			s.recorder.CacheLookup("miss")
		}
	}

	fallbackAttempted := false
	fallbackUsable := req.Fallback.Enabled && s.fallback != nil

	if !cacheHit && len(resp.Matches) == 0 && fallbackUsable && req.Fallback.Preferred {
		fallbackAttempted = true
		if err := s.runFallbackStage(ctx, req, user, policy, quota, resp, log); err != nil {
			return nil, err
		}
	}

	if !cacheHit && len(resp.Matches) == 0 {
		if err := quota.Consume(ctx, user, access.ScopePrimaryLookup, 1); err != nil {
			s.recorder.QuotaRejected(string(access.ScopePrimaryLookup))
			return nil, err
		}
		matches, lerr := s.primary.Lookup(ctx, fp)
		if lerr != nil {
			s.recorder.ProviderCall("primary", "error")
			log.Error("Primary lookup failed", "error", lerr)
			return nil, lookupError(lerr)
		}
		matches = music.MergeMatches(matches)
		if useCache {
			s.cache.Set(fp.Fingerprint, fp.Duration, matches)
		}
		if len(matches) > 0 {
			s.recorder.ProviderCall("primary", "ok")
			resp.Matches = matches
			resp.MatchSource = SourcePrimary
		} else {
			s.recorder.ProviderCall("primary", "empty")
			log.Debug("Primary provider returned no matches")
		}
	}

	if !cacheHit && len(resp.Matches) == 0 && fallbackUsable && !fallbackAttempted {
		if err := s.runFallbackStage(ctx, req, user, policy, quota, resp, log); err != nil {
			return nil, err
		}
	}

	if len(resp.Matches) > 0 && req.EnrichmentEnabled && s.enricher != nil {
		if err := policy.EnsureFeature(user, access.FeatureEnrichment); err != nil {
			s.recorder.AccessDenied(string(access.FeatureEnrichment))
			return nil, err
		}
		// One quota unit per resolution, not per match.
		if err := quota.Consume(ctx, user, access.ScopeEnrichment, 1); err != nil {
			s.recorder.QuotaRejected(string(access.ScopeEnrichment))
			return nil, err
		}
		if s.enrichMatches(ctx, resp.Matches, log) && resp.MatchSource == SourcePrimary && useCache {
			s.cache.Set(fp.Fingerprint, fp.Duration, resp.Matches)
		}
	}

	if len(resp.Matches) == 0 && s.extractor != nil {
		if md := s.extractor.Extract(ctx, req.AudioRef); len(md) > 0 {
			log.Debug("Local metadata fallback used", "fields", len(md))
			resp.Metadata = md
		}
	}

	s.recorder.Resolution(string(resp.MatchSource))
	log.Info("Resolution completed", "matches", len(resp.Matches), "source", resp.MatchSource)
	return resp, nil
}

// runFallbackStage authorizes, meters and executes the fallback provider
// with mode fallback. Provider failures become a soft note on the response;
// only policy errors are returned.
func (s *Service) runFallbackStage(ctx context.Context, req *IdentifyRequest, user *access.ServiceUser, policy access.AccessPolicy, quota access.QuotaPolicy, resp *IdentifyResponse, log *slog.Logger) error {
	if err := policy.EnsureFeature(user, access.FeatureFallbackProvider); err != nil {
		s.recorder.AccessDenied(string(access.FeatureFallbackProvider))
		return err
	}
	mode := resolveMode(req.Fallback)
	scope := scopeForMode(mode)
	if err := quota.Consume(ctx, user, scope, 1); err != nil {
		s.recorder.QuotaRejected(string(scope))
		return err
	}

	matches, note, err := s.recognizeWithModeFallback(ctx, req, user, quota, mode)
	if note != "" {
		resp.FallbackNote = note
	}
	if err != nil {
		if errors.Is(err, access.ErrQuotaExceeded) {
			s.recorder.QuotaRejected(string(scopeForMode(otherMode(mode))))
			return err
		}
		s.recorder.ProviderCall("fallback", "error")
		resp.FallbackError = err.Error()
		s.notifyWarning("fallback provider failed: " + err.Error())
		log.Warn("Fallback provider failed", "mode", mode, "error", err)
		return nil
	}
	if len(matches) > 0 {
		s.recorder.ProviderCall("fallback", "ok")
		resp.Matches = music.MergeMatches(matches)
		resp.MatchSource = SourceFallback
		log.Debug("Fallback provider matched", "mode", mode, "matches", len(resp.Matches))
	} else {
		s.recorder.ProviderCall("fallback", "empty")
	}
	return nil
}

// enrichMatches fills empty fields of every match whose recording ID looks
// like the enrichment provider's native identifier. Failures skip only the
// affected match. Returns whether any match changed.
func (s *Service) enrichMatches(ctx context.Context, matches []music.Match, log *slog.Logger) bool {
	changed := false
	for i := range matches {
		m := &matches[i]
		if !music.IsMusicBrainzID(m.RecordingID) {
			continue
		}
		rec, err := s.enricher.LookupByID(ctx, m.RecordingID)
		if err != nil {
			s.recorder.ProviderCall("enrichment", "error")
			s.notifyWarning("enrichment failed for " + m.RecordingID + ": " + err.Error())
			log.Warn("Enrichment failed", "recordingID", m.RecordingID, "error", err)
			continue
		}
		if rec == nil {
			s.recorder.ProviderCall("enrichment", "empty")
			continue
		}
		s.recorder.ProviderCall("enrichment", "ok")
		if m.FillFrom(*rec) {
			changed = true
		}
	}
	return changed
}

// notifyWarning forwards to the callbacks sink, swallowing panics so a
// broken sink can never abort a resolution.
func (s *Service) notifyWarning(msg string) {
	if s.callbacks == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Callbacks sink panicked", "panic", r)
		}
	}()
	s.callbacks.Warning(msg)
}

func userID(u *access.ServiceUser) string {
	if u == nil || u.UserID == "" {
		return "anonymous"
	}
	return u.UserID
}
