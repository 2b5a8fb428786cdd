package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAccessDenied marks authorization failures. Resolutions fail closed on it.
var ErrAccessDenied = errors.New("access denied")

// ErrQuotaExceeded marks metered-usage rejections.
var ErrQuotaExceeded = errors.New("quota exceeded")

// DeniedError wraps a denial with the feature that was refused.
type DeniedError struct {
	UserID  string
	Feature Feature
}

func (e *DeniedError) Error() string {
	who := e.UserID
	if who == "" {
		who = "anonymous"
	}
	return fmt.Sprintf("access denied: user %q lacks feature %q", who, e.Feature)
}

func (e *DeniedError) Unwrap() error { return ErrAccessDenied }

// QuotaError wraps a rejection with the scope and the window usage that
// caused it.
type QuotaError struct {
	UserID string
	Scope  QuotaScope
	Usage  int
	Limit  int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: user %q scope %q used %d of %d", e.UserID, e.Scope, e.Usage, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// AccessPolicy authorizes feature use. Implementations must be safe for
// concurrent use by many resolutions.
type AccessPolicy interface {
	EnsureFeature(user *ServiceUser, feature Feature) error
}

// QuotaPolicy meters provider calls. Consume either records the usage and
// returns nil, or returns a QuotaError without recording anything.
// Implementations must serialize concurrent read-then-increment per
// (user, scope); two callers may not both slip past the limit.
type QuotaPolicy interface {
	Consume(ctx context.Context, user *ServiceUser, scope QuotaScope, cost int) error
}

// AllowAllPolicy authorizes every feature for every caller.
type AllowAllPolicy struct{}

func (AllowAllPolicy) EnsureFeature(user *ServiceUser, feature Feature) error { return nil }

// UnlimitedQuota never rejects and never records usage.
type UnlimitedQuota struct{}

func (UnlimitedQuota) Consume(ctx context.Context, user *ServiceUser, scope QuotaScope, cost int) error {
	return nil
}

// AttributePolicy authorizes against the user's own allowed-feature set.
// Callers with the admin role bypass the check.
type AttributePolicy struct{}

func (AttributePolicy) EnsureFeature(user *ServiceUser, feature Feature) error {
	if user == nil {
		return &DeniedError{Feature: feature}
	}
	if user.Roles["admin"] {
		return nil
	}
	if !user.HasFeature(feature) {
		slog.Debug("feature denied", "user", user.UserID, "feature", feature)
		return &DeniedError{UserID: user.UserID, Feature: feature}
	}
	return nil
}
