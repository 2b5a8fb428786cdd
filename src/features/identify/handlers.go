package identify

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/lunefort/tuneid/src/features/access"
	"github.com/lunefort/tuneid/src/features/config"
)

// Handler handles HTTP requests for the identify feature.
type Handler struct {
	service *Service
	config  *config.Manager
	policy  access.AccessPolicy
	quota   access.QuotaPolicy
}

// NewHandler creates a new identify handler.
func NewHandler(service *Service, cfg *config.Manager, policy access.AccessPolicy, quota access.QuotaPolicy) *Handler {
	return &Handler{service: service, config: cfg, policy: policy, quota: quota}
}

// RequestFromConfig builds an IdentifyRequest for audioRef with the
// configured provider defaults.
func RequestFromConfig(cfg *config.Config, audioRef string) *IdentifyRequest {
	return &IdentifyRequest{
		AudioRef:          audioRef,
		Fallback:          fallbackFromConfig(cfg.Providers.Audd),
		EnrichmentEnabled: cfg.Providers.MusicBrainz.Enabled,
	}
}

// fallbackFromConfig translates the audd config block into the per-request
// fallback configuration.
func fallbackFromConfig(a config.Audd) FallbackConfig {
	mode := FallbackMode(a.Mode)
	if mode != ModeStandard && mode != ModeEnterprise {
		mode = ModeAuto
	}
	return FallbackConfig{
		Enabled:            a.Enabled && a.Token != "",
		Preferred:          a.Preferred,
		Token:              a.Token,
		Endpoint:           a.Endpoint,
		Mode:               mode,
		ForceEnterprise:    a.ForceEnterprise,
		EnterpriseFallback: a.EnterpriseFallback,
		SnippetOffset:      a.SnippetOffset,
		Enterprise: EnterpriseParams{
			Skip:             a.Enterprise.Skip,
			Every:            a.Enterprise.Every,
			Limit:            a.Enterprise.Limit,
			SkipFirstSeconds: a.Enterprise.SkipFirstSeconds,
			AccurateOffsets:  a.Enterprise.AccurateOffsets,
			UseTimecode:      a.Enterprise.UseTimecode,
		},
	}
}

// Identify resolves a single audio file.
func (h *Handler) Identify(c *fiber.Ctx) error {
	type identifyBody struct {
		AudioRef          string `json:"audioRef"`
		ForceRefresh      bool   `json:"forceRefresh"`
		DisableCache      bool   `json:"disableCache"`
		DisableEnrichment bool   `json:"disableEnrichment"`
		DisableFallback   bool   `json:"disableFallback"`
	}
	var body identifyBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	if body.AudioRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "audioRef is required",
		})
	}

	req := RequestFromConfig(h.config.Get(), body.AudioRef)
	req.ForceRefresh = body.ForceRefresh
	req.DisableCache = body.DisableCache
	if body.DisableEnrichment {
		req.EnrichmentEnabled = false
	}
	if body.DisableFallback {
		req.Fallback.Enabled = false
	}

	user := CallerFromContext(c)
	resp, err := h.service.Resolve(c.Context(), req, user, h.policy, h.quota)
	if err != nil {
		return writeResolveError(c, err)
	}
	return c.JSON(resp)
}

// ClearCache drops every cached match.
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	h.service.Cache().Clear()
	if err := h.service.Cache().Save(); err != nil {
		slog.Error("Failed to persist cleared cache", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to persist cleared cache",
		})
	}
	slog.Info("Match cache cleared")
	return c.JSON(fiber.Map{"status": "cleared"})
}

// CallerFromContext returns the ServiceUser resolved by the auth
// middleware, or the anonymous sentinel.
func CallerFromContext(c *fiber.Ctx) *access.ServiceUser {
	if user, ok := c.Locals("user").(*access.ServiceUser); ok && user != nil {
		return user
	}
	return access.Anonymous()
}

// writeResolveError maps the resolution error taxonomy onto HTTP statuses.
func writeResolveError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, access.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, access.ErrQuotaExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrLookup):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
