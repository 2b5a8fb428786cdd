package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the service's Prometheus collectors. A nil Recorder is
// valid and records nothing, so callers don't need to guard every call.
type Recorder struct {
	resolutions    *prometheus.CounterVec
	providerCalls  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	policyRejected *prometheus.CounterVec
}

// NewRecorder registers the collectors with the given registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuneid",
			Name:      "resolutions_total",
			Help:      "Completed resolutions by match source.",
		}, []string{"source"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuneid",
			Name:      "provider_calls_total",
			Help:      "Provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuneid",
			Name:      "cache_lookups_total",
			Help:      "Match cache lookups by result.",
		}, []string{"result"}),
		policyRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tuneid",
			Name:      "policy_rejections_total",
			Help:      "Access denials and quota rejections by kind.",
		}, []string{"kind", "subject"}),
	}
	reg.MustRegister(r.resolutions, r.providerCalls, r.cacheLookups, r.policyRejected)
	return r
}

// Resolution records a completed resolution. Use "none" when no match.
func (r *Recorder) Resolution(source string) {
	if r == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	r.resolutions.WithLabelValues(source).Inc()
}

// ProviderCall records one provider call outcome ("ok", "empty" or "error").
func (r *Recorder) ProviderCall(provider, outcome string) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// CacheLookup records a cache "hit" or "miss".
func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// AccessDenied records an authorization denial for a feature.
func (r *Recorder) AccessDenied(feature string) {
	if r == nil {
		return
	}
	r.policyRejected.WithLabelValues("access_denied", feature).Inc()
}

// QuotaRejected records a quota rejection for a scope.
func (r *Recorder) QuotaRejected(scope string) {
	if r == nil {
		return
	}
	r.policyRejected.WithLabelValues("quota_exceeded", scope).Inc()
}
