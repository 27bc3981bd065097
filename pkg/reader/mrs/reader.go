// Package mrs parses MRS (magnetic resonance spectroscopy) data files.
//
// A data file has a header region of "name = value" lines closed by two
// "$END" sentinel lines, followed by a data region where every line holds the
// real and imaginary parts of one time-domain sample.
//
// All entry points are pure: they work on text already in memory, keep no
// package state and may be called concurrently.
package mrs

import (
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/brainscan/pkg/core"
)

// IncompleteHeaderPolicy selects what happens when the input ends before the
// second $END sentinel.
type IncompleteHeaderPolicy int

const (
	// PolicyFail returns ErrIncompleteHeader.
	PolicyFail IncompleteHeaderPolicy = iota
	// PolicyEmpty returns an empty header and no error.
	PolicyEmpty
)

// ParsePolicy maps a configuration value ("fail" or "empty") to a policy.
func ParsePolicy(s string) (IncompleteHeaderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "empty":
		return PolicyEmpty, nil
	default:
		return PolicyFail, fmt.Errorf("invalid incomplete header policy '%s', must be fail or empty", s)
	}
}

func (p IncompleteHeaderPolicy) String() string {
	if p == PolicyEmpty {
		return "empty"
	}
	return "fail"
}

// Option configures a parse.
type Option func(*pass)

// WithIncompleteHeaderPolicy sets the policy applied when fewer than two
// $END sentinels are found.
func WithIncompleteHeaderPolicy(p IncompleteHeaderPolicy) Option {
	return func(ps *pass) {
		ps.policy = p
	}
}

// ParseHeader reads the header region of raw and returns its fields. A name
// that repeats keeps its last value.
func ParseHeader(raw string, opts ...Option) (core.Header, error) {
	ps := newPass(true, false, opts)
	doc, err := ps.run(raw)
	if err != nil {
		return nil, err
	}
	return doc.Header, nil
}

// ParseSamples reads the data region of raw. Lines with fewer than two tokens
// are skipped. Input without a complete header has no data region and yields
// an empty series.
func ParseSamples(raw string) (core.TimeSeries, error) {
	ps := newPass(false, true, nil)
	doc, err := ps.run(raw)
	if err != nil {
		return nil, err
	}
	return doc.Samples, nil
}

// Parse reads header and samples in a single pass.
func Parse(raw string, opts ...Option) (*core.Document, error) {
	return newPass(true, true, opts).run(raw)
}

// Reader parses an MRS data file from an io.Reader. The whole input is read
// into memory before parsing.
type Reader struct {
	r    io.Reader
	opts []Option
}

// NewReader creates a new MRS reader
func NewReader(r io.Reader, opts ...Option) *Reader {
	return &Reader{r: r, opts: opts}
}

// Read consumes the input and returns the parsed document.
func (r *Reader) Read() (*core.Document, error) {
	data, err := io.ReadAll(r.r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Parse(string(data), r.opts...)
}

// pass is one walk over the lines of a document. Sentinel counting lives only
// here so every entry point agrees on where the data region starts.
type pass struct {
	header  bool
	samples bool
	policy  IncompleteHeaderPolicy
}

func newPass(header, samples bool, opts []Option) *pass {
	ps := &pass{header: header, samples: samples}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

func (ps *pass) run(raw string) (*core.Document, error) {
	doc := &core.Document{
		Header:  core.Header{},
		Samples: core.TimeSeries{},
	}

	ends := 0
	for i, rawLine := range strings.Split(lineEndings.Replace(raw), "\n") {
		lineNum := i + 1
		line := strings.TrimSpace(rawLine)

		if ends < 2 {
			if isDirective(line) {
				if line == endSentinel {
					ends++
					if ends == 2 && !ps.samples {
						break
					}
				}
				continue
			}
			if !ps.header {
				continue
			}

			name, value, ok := parseAssignment(line)
			if !ok {
				return nil, &HeaderLineError{Line: lineNum, Content: line}
			}
			doc.Header[name] = value
			continue
		}

		sample, ok, err := parseSample(lineNum, line)
		if err != nil {
			return nil, err
		}
		if ok {
			doc.Samples = append(doc.Samples, sample)
		}
	}

	if ends < 2 && ps.header {
		if ps.policy == PolicyFail {
			return nil, ErrIncompleteHeader
		}
		doc.Header = core.Header{}
	}

	return doc, nil
}
