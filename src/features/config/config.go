package config

// Config holds the application configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Logger    Logger    `yaml:"logger"`
	Cache     Cache     `yaml:"cache"`
	Providers Providers `yaml:"providers"`
	Quota     Quota     `yaml:"quota"`
	Users     []User    `yaml:"users" validate:"omitempty,dive"`
	Batch     Batch     `yaml:"batch"`
	Jobs      Jobs      `yaml:"jobs"`
	Telegram  Telegram  `yaml:"telegram"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// Cache holds the configuration for the match cache.
type Cache struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	TTLHours int    `yaml:"ttl_hours"`
}

// Providers holds the configuration for the lookup providers.
type Providers struct {
	AcoustID    AcoustID    `yaml:"acoustid"`
	Audd        Audd        `yaml:"audd"`
	MusicBrainz MusicBrainz `yaml:"musicbrainz"`
}

// AcoustID configures the primary lookup provider.
type AcoustID struct {
	ClientKey string `yaml:"client_key,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
}

// Audd configures the fallback lookup provider.
type Audd struct {
	Enabled            bool           `yaml:"enabled"`
	Preferred          bool           `yaml:"preferred"`
	Token              string         `yaml:"token,omitempty"`
	Endpoint           string         `yaml:"endpoint,omitempty"`
	EnterpriseEndpoint string         `yaml:"enterprise_endpoint,omitempty"`
	Mode               string         `yaml:"mode,omitempty" validate:"omitempty,oneof=auto standard enterprise"`
	ForceEnterprise    bool           `yaml:"force_enterprise,omitempty"`
	EnterpriseFallback bool           `yaml:"enterprise_fallback,omitempty"`
	SnippetOffset      float64        `yaml:"snippet_offset,omitempty"`
	Enterprise         AuddEnterprise `yaml:"enterprise,omitempty"`
}

// AuddEnterprise holds the enterprise-only recognition parameters.
type AuddEnterprise struct {
	Skip             []int    `yaml:"skip,omitempty"`
	Every            *float64 `yaml:"every,omitempty"`
	Limit            *int     `yaml:"limit,omitempty"`
	SkipFirstSeconds *float64 `yaml:"skip_first_seconds,omitempty"`
	AccurateOffsets  bool     `yaml:"accurate_offsets,omitempty"`
	UseTimecode      bool     `yaml:"use_timecode,omitempty"`
}

// MusicBrainz configures the enrichment provider.
type MusicBrainz struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty"`
}

// Quota configures the persistent rolling-window quota store.
type Quota struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
	WindowHours  int    `yaml:"window_hours"`
}

// User declares a service user and its policy inputs.
type User struct {
	ID          string         `yaml:"id" validate:"required"`
	APIKey      string         `yaml:"api_key,omitempty"`
	Roles       []string       `yaml:"roles,omitempty"`
	Features    []string       `yaml:"features,omitempty"`
	QuotaLimits map[string]int `yaml:"quota_limits,omitempty"`
}

// Batch holds configuration for the batch runner.
type Batch struct {
	Extensions []string   `yaml:"extensions,omitempty"`
	Watch      BatchWatch `yaml:"watch"`
}

// BatchWatch configures the drop-directory watcher.
type BatchWatch struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Jobs holds the configuration for async jobs.
type Jobs struct {
	Log     bool   `yaml:"log"`
	LogPath string `yaml:"log_path"`
}

// Telegram configures the Telegram notification sink.
type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token,omitempty"`
	ChatID  int64  `yaml:"chat_id,omitempty"`
}
