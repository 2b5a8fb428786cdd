package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/lunefort/tuneid/src/music"
)

// Service computes acoustic fingerprints with the fpcalc tool from the
// chromaprint suite. It implements the identify feature's
// FingerprintProvider.
type Service struct{}

// NewFingerprintService creates a new fingerprint service.
func NewFingerprintService() *Service {
	return &Service{}
}

// Compute generates a fingerprint for an audio file.
func (s *Service) Compute(ctx context.Context, audioRef string) (music.FingerprintResult, error) {
	if _, err := exec.LookPath("fpcalc"); err != nil {
		return music.FingerprintResult{}, fmt.Errorf("fpcalc not found, install chromaprint tools: %w", err)
	}

	cmd := exec.CommandContext(ctx, "fpcalc", "-json", audioRef)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return music.FingerprintResult{}, fmt.Errorf("fpcalc failed: %s", exitErr.Stderr)
		}
		return music.FingerprintResult{}, fmt.Errorf("failed to generate fingerprint with fpcalc: %w", err)
	}

	var result music.FingerprintResult
	if err := json.Unmarshal(output, &result); err != nil {
		return music.FingerprintResult{}, fmt.Errorf("failed to parse fpcalc output: %w", err)
	}
	if result.Fingerprint == "" {
		return music.FingerprintResult{}, fmt.Errorf("fpcalc produced an empty fingerprint for %s", audioRef)
	}
	return result, nil
}
