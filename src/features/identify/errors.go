package identify

import (
	"errors"
	"fmt"
)

// Resolution-fatal and soft error kinds. Callers branch on the kind with
// errors.Is, never on message text.
var (
	// ErrFingerprint marks a fingerprinting failure. Fatal.
	ErrFingerprint = errors.New("fingerprint error")
	// ErrLookup marks a primary provider failure. Fatal, after cache flush.
	ErrLookup = errors.New("lookup error")
	// ErrFallback marks a fallback provider failure. Soft; recorded on the
	// response and the resolution continues.
	ErrFallback = errors.New("fallback error")
)

func fingerprintError(err error) error {
	return fmt.Errorf("%w: %w", ErrFingerprint, err)
}

func lookupError(err error) error {
	return fmt.Errorf("%w: %w", ErrLookup, err)
}

func fallbackError(err error) error {
	if errors.Is(err, ErrFallback) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFallback, err)
}
