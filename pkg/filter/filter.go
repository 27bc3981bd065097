// Package filter provides spectrum preprocessing applied before classification
package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ChrisMcGann/brainscan/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	IntensityCutoff float64 // Zero bins below this % of the base bin (0 = no cutoff)
	Normalize       bool    // Scale bins so the base bin is 1
}

// Apply applies all configured filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("intensity cutoff must be between 0 and 100, got %.2f", c.IntensityCutoff)
	}

	for i, v := range spec.Bins {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bin %d is not finite", i)
		}
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	if c.Normalize {
		normalize(spec)
	}

	return nil
}

// filterByIntensity zeroes bins below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	maxIntensity, idx := spec.Max()
	if idx < 0 || maxIntensity <= 0 {
		return
	}

	// Calculate threshold
	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	for i, v := range spec.Bins {
		if v < threshold {
			spec.Bins[i] = 0
		}
	}
}

// normalize scales bins so the largest is 1. All-zero spectra are left as is.
func normalize(spec *core.Spectrum) {
	maxIntensity, idx := spec.Max()
	if idx < 0 || maxIntensity <= 0 {
		return
	}

	floats.Scale(1/maxIntensity, spec.Bins)
}
