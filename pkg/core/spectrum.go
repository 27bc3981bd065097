// Package core provides the domain model shared by the MRS parser, the
// frequency transform, the classifiers and storage.
package core

import (
	"fmt"
	"math"
	"strings"
)

// Spectrum is a frequency-domain magnitude spectrum sampled at fixed bins.
type Spectrum struct {
	Bins []float64 // Magnitude per bin, low to high frequency
	N    int       // Transform length the bins were taken from
	Step int       // Stride between kept DFT coefficients
}

// ValidationError represents an error found during validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum can be used as classifier input.
func (s *Spectrum) Validate() error {
	var errs []string

	if len(s.Bins) == 0 {
		errs = append(errs, "at least one bin is required")
	}

	for i, v := range s.Bins {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Sprintf("bin %d is not finite", i))
		}
		if v < 0 {
			errs = append(errs, fmt.Sprintf("bin %d must be non-negative", i))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// Max returns the largest bin value and its index. An empty spectrum yields (0, -1).
func (s *Spectrum) Max() (float64, int) {
	maxVal, idx := 0.0, -1
	for i, v := range s.Bins {
		if idx == -1 || v > maxVal {
			maxVal, idx = v, i
		}
	}
	return maxVal, idx
}

// Features returns a copy of the bins for use as a classifier feature vector.
func (s *Spectrum) Features() []float64 {
	out := make([]float64, len(s.Bins))
	copy(out, s.Bins)
	return out
}
