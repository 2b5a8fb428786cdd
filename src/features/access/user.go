package access

// Feature is a capability a caller may or may not be allowed to use.
type Feature string

const (
	FeatureIdentify         Feature = "identify"
	FeatureIdentifyBatch    Feature = "identify_batch"
	FeatureRename           Feature = "rename"
	FeatureFallbackProvider Feature = "fallback_provider"
	FeatureEnrichment       Feature = "enrichment"
)

// QuotaScope names a metered class of provider calls.
type QuotaScope string

const (
	ScopePrimaryLookup            QuotaScope = "primary_lookup"
	ScopeFallbackStandardLookup   QuotaScope = "fallback_standard_lookup"
	ScopeFallbackEnterpriseLookup QuotaScope = "fallback_enterprise_lookup"
	ScopeEnrichment               QuotaScope = "enrichment"
)

// UserAttributes carries the per-user policy inputs.
type UserAttributes struct {
	AllowedFeatures map[Feature]bool
	// QuotaLimits maps a scope to its rolling-window budget. A missing
	// scope means the user is unrestricted for that scope.
	QuotaLimits map[QuotaScope]int
}

// ServiceUser identifies the caller of a resolution.
type ServiceUser struct {
	UserID     string
	Roles      map[string]bool
	Attributes UserAttributes
}

// Anonymous returns the sentinel user for unauthenticated callers.
func Anonymous() *ServiceUser {
	return &ServiceUser{
		Roles: map[string]bool{"anonymous": true},
	}
}

// NewServiceUser builds a user from its declared roles, features, and
// quota limits, as they appear in configuration.
func NewServiceUser(id string, roles, features []string, quotas map[string]int) *ServiceUser {
	user := &ServiceUser{
		UserID: id,
		Roles:  make(map[string]bool, len(roles)),
		Attributes: UserAttributes{
			AllowedFeatures: make(map[Feature]bool, len(features)),
			QuotaLimits:     make(map[QuotaScope]int, len(quotas)),
		},
	}
	for _, role := range roles {
		user.Roles[role] = true
	}
	for _, feature := range features {
		user.Attributes.AllowedFeatures[Feature(feature)] = true
	}
	for scope, limit := range quotas {
		user.Attributes.QuotaLimits[QuotaScope(scope)] = limit
	}
	return user
}

// IsAnonymous reports whether the user is the unauthenticated sentinel.
func (u *ServiceUser) IsAnonymous() bool {
	return u.UserID == "" && u.Roles["anonymous"]
}

// HasFeature reports whether the user's attributes grant the feature.
func (u *ServiceUser) HasFeature(f Feature) bool {
	return u.Attributes.AllowedFeatures[f]
}

// QuotaLimit returns the user's limit for a scope, or ok=false when the
// scope is unrestricted.
func (u *ServiceUser) QuotaLimit(scope QuotaScope) (int, bool) {
	limit, ok := u.Attributes.QuotaLimits[scope]
	return limit, ok
}
