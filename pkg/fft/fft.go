// Package fft converts time-domain MRS series into fixed-size magnitude spectra.
package fft

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ChrisMcGann/brainscan/pkg/core"
)

const (
	// ZeroFillFactor is the transform length relative to the input length.
	// The series is zero-filled up to this size to preserve signal-to-noise.
	ZeroFillFactor = 4
	// DefaultStepDivisor keeps every N/40-th coefficient of the lower half.
	DefaultStepDivisor = 40
)

// ErrEmptySeries is returned when there is nothing to transform.
var ErrEmptySeries = errors.New("time series is empty")

// Component selects which part of each sample enters the transform.
type Component int

const (
	// Complex transforms the full complex samples.
	Complex Component = iota
	// RealOnly discards the imaginary parts first.
	RealOnly
)

// ParseComponent maps a configuration value ("complex" or "real") to a Component.
func ParseComponent(s string) (Component, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complex":
		return Complex, nil
	case "real":
		return RealOnly, nil
	default:
		return Complex, fmt.Errorf("invalid fft component '%s', must be complex or real", s)
	}
}

func (c Component) String() string {
	if c == RealOnly {
		return "real"
	}
	return "complex"
}

// Options holds transform configuration
type Options struct {
	Bins      int       // Exact number of output bins taken every N/2/Bins coefficients (0 = every N/40-th)
	Component Component // Which sample component to transform
}

// Transform zero-fills ts to ZeroFillFactor times its length, applies a DFT
// and returns 2/N-scaled magnitudes sampled across the lower half of the
// coefficients.
func Transform(ts core.TimeSeries, opts Options) (core.Spectrum, error) {
	if len(ts) == 0 {
		return core.Spectrum{}, ErrEmptySeries
	}
	if opts.Bins < 0 {
		return core.Spectrum{}, fmt.Errorf("bins must be non-negative, got %d", opts.Bins)
	}

	n := len(ts) * ZeroFillFactor
	half := n / 2
	if opts.Bins > half {
		return core.Spectrum{}, fmt.Errorf("%d bins requested but only %d coefficients available", opts.Bins, half)
	}

	seq := make([]complex128, n)
	for i, s := range ts {
		if opts.Component == RealOnly {
			seq[i] = complex(real(s), 0)
		} else {
			seq[i] = s
		}
	}

	coeffs := fourier.NewCmplxFFT(n).Coefficients(nil, seq)
	scale := 2.0 / float64(n)

	spec := core.Spectrum{N: n}

	if opts.Bins > 0 {
		// Bins <= half, so the stride is at least 1 and every index is in the lower half.
		spec.Step = half / opts.Bins
		spec.Bins = make([]float64, opts.Bins)
		for i := range spec.Bins {
			spec.Bins[i] = scale * cmplx.Abs(coeffs[i*spec.Step])
		}
		return spec, nil
	}

	step := n / DefaultStepDivisor
	if step < 1 {
		step = 1
	}
	spec.Step = step
	for k := 0; k < half; k += step {
		spec.Bins = append(spec.Bins, scale*cmplx.Abs(coeffs[k]))
	}

	return spec, nil
}
