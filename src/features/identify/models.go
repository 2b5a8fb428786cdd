package identify

import (
	"github.com/lunefort/tuneid/src/music"
)

// MatchSource says which provider produced the matches in a response.
type MatchSource string

const (
	SourcePrimary  MatchSource = "primary"
	SourceFallback MatchSource = "fallback"
	SourceNone     MatchSource = ""
)

// FallbackMode selects how the fallback provider is invoked.
type FallbackMode string

const (
	ModeAuto       FallbackMode = "auto"
	ModeStandard   FallbackMode = "standard"
	ModeEnterprise FallbackMode = "enterprise"
)

// EnterpriseParams are the enterprise-only recognition parameters. Setting
// any of them makes ModeAuto resolve to enterprise.
type EnterpriseParams struct {
	Skip             []int    `json:"skip,omitempty" yaml:"skip,omitempty"`
	Every            *float64 `json:"every,omitempty" yaml:"every,omitempty"`
	Limit            *int     `json:"limit,omitempty" yaml:"limit,omitempty"`
	SkipFirstSeconds *float64 `json:"skipFirstSeconds,omitempty" yaml:"skip_first_seconds,omitempty"`
	AccurateOffsets  bool     `json:"accurateOffsets,omitempty" yaml:"accurate_offsets,omitempty"`
	UseTimecode      bool     `json:"useTimecode,omitempty" yaml:"use_timecode,omitempty"`
}

// Any reports whether at least one enterprise-only parameter is set.
func (p EnterpriseParams) Any() bool {
	return len(p.Skip) > 0 ||
		p.Every != nil ||
		p.Limit != nil ||
		p.SkipFirstSeconds != nil ||
		p.AccurateOffsets ||
		p.UseTimecode
}

// FallbackConfig configures the fallback provider for one resolution.
type FallbackConfig struct {
	Enabled            bool             `json:"enabled" yaml:"enabled"`
	Preferred          bool             `json:"preferred" yaml:"preferred"`
	Token              string           `json:"-" yaml:"token"`
	Endpoint           string           `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Mode               FallbackMode     `json:"mode,omitempty" yaml:"mode,omitempty"`
	ForceEnterprise    bool             `json:"forceEnterprise,omitempty" yaml:"force_enterprise,omitempty"`
	EnterpriseFallback bool             `json:"enterpriseFallback,omitempty" yaml:"enterprise_fallback,omitempty"`
	Enterprise         EnterpriseParams `json:"enterprise,omitempty" yaml:"enterprise,omitempty"`
	// SnippetOffset is where (in seconds) the standard-mode upload snippet
	// starts within the file.
	SnippetOffset float64 `json:"snippetOffset,omitempty" yaml:"snippet_offset,omitempty"`
}

// IdentifyRequest is the immutable input to one resolution.
type IdentifyRequest struct {
	AudioRef          string         `json:"audioRef"`
	Fallback          FallbackConfig `json:"fallback"`
	EnrichmentEnabled bool           `json:"enrichmentEnabled"`
	DisableCache      bool           `json:"disableCache"`
	ForceRefresh      bool           `json:"forceRefresh"`
}

// IdentifyResponse is the outcome of one resolution. Matches is never nil;
// an empty list means no match. Metadata is only set when the match list is
// empty and the local-metadata fallback produced something.
type IdentifyResponse struct {
	Fingerprint   music.FingerprintResult `json:"fingerprint"`
	Matches       []music.Match           `json:"matches"`
	MatchSource   MatchSource             `json:"matchSource,omitempty"`
	Metadata      map[string]string       `json:"metadata,omitempty"`
	FallbackNote  string                  `json:"fallbackNote,omitempty"`
	FallbackError string                  `json:"fallbackError,omitempty"`
}
