// Package analysis chains parsing, the frequency transform and preprocessing
// to turn stored MRS files into classifier features.
package analysis

import (
	"fmt"

	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/core"
	"github.com/ChrisMcGann/brainscan/pkg/fft"
	"github.com/ChrisMcGann/brainscan/pkg/filter"
	"github.com/ChrisMcGann/brainscan/pkg/reader/mrs"
)

// Analyzer holds the settings for every stage.
type Analyzer struct {
	Policy mrs.IncompleteHeaderPolicy
	FFT    fft.Options
	Filter filter.Config
}

// Result is the output of every stage for one file.
type Result struct {
	Document *core.Document
	Spectrum core.Spectrum
}

// Analyze parses raw file contents and computes their preprocessed spectrum.
func (a *Analyzer) Analyze(raw []byte) (*Result, error) {
	doc, err := mrs.Parse(string(raw), mrs.WithIncompleteHeaderPolicy(a.Policy))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MRS data: %w", err)
	}

	spec, err := fft.Transform(doc.Samples, a.FFT)
	if err != nil {
		return nil, fmt.Errorf("failed to transform MRS data: %w", err)
	}

	if err := a.Filter.Apply(&spec); err != nil {
		return nil, fmt.Errorf("failed to filter spectrum: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Result{Document: doc, Spectrum: spec}, nil
}

// TrainingSamples converts labelled scans into classifier samples.
func (a *Analyzer) TrainingSamples(scans []*core.Scan) ([]classify.Sample, error) {
	samples := make([]classify.Sample, 0, len(scans))
	for _, scan := range scans {
		res, err := a.Analyze(scan.Contents)
		if err != nil {
			return nil, fmt.Errorf("scan %s (%s): %w", scan.ID, scan.FileName, err)
		}
		samples = append(samples, classify.Sample{
			Features: res.Spectrum.Features(),
			Label:    scan.GroupLabel,
		})
	}
	return samples, nil
}
