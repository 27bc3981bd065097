// Package classify trains and applies classifiers that map a frequency
// spectrum to a therapy group label.
//
// Two small models are provided: nearest centroid and k-nearest neighbours.
// They stand in for the SVM and neural network classifiers of the earlier
// Python tool and do not reproduce their decisions.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Kind identifies a classifier algorithm.
type Kind string

const (
	KindCentroid Kind = "centroid" // Nearest class centroid
	KindKNN      Kind = "knn"      // k-nearest neighbours, majority vote
)

// DefaultK is the neighbour count used when TrainOptions.K is zero.
const DefaultK = 3

var (
	ErrNoSamples   = errors.New("must provide at least one sample for classifier training")
	ErrDimension   = errors.New("feature dimension mismatch")
	ErrUnknownKind = errors.New("unknown classifier type")
)

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCentroid, KindKNN:
		return k, nil
	default:
		return "", fmt.Errorf("%w '%s', must be centroid or knn", ErrUnknownKind, s)
	}
}

// Sample is one labelled training input.
type Sample struct {
	Features []float64 `json:"features"`
	Label    string    `json:"label"`
}

// TrainOptions holds training configuration
type TrainOptions struct {
	K int // Neighbour count for KindKNN (0 = DefaultK)
}

// Model is a trained classifier.
type Model struct {
	Kind      Kind        `json:"kind"`
	Dim       int         `json:"dim"`
	K         int         `json:"k,omitempty"`
	Labels    []string    `json:"labels,omitempty"`
	Centroids [][]float64 `json:"centroids,omitempty"`
	Samples   []Sample    `json:"samples,omitempty"`
}

// CheckSamples verifies that samples are usable for training: at least one
// sample, every sample labelled, all feature vectors the same non-zero length.
func CheckSamples(samples []Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	dim := len(samples[0].Features)
	if dim == 0 {
		return fmt.Errorf("sample 0 has no features")
	}

	for i, s := range samples {
		if len(s.Features) != dim {
			return fmt.Errorf("sample %d: %w: got %d, want %d", i, ErrDimension, len(s.Features), dim)
		}
		if strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("sample %d has no label", i)
		}
	}

	return nil
}

// Train fits a classifier of the given kind.
func Train(kind Kind, samples []Sample, opts TrainOptions) (*Model, error) {
	if err := CheckSamples(samples); err != nil {
		return nil, err
	}

	switch kind {
	case KindCentroid:
		return trainCentroid(samples), nil
	case KindKNN:
		return trainKNN(samples, opts)
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUnknownKind, kind)
	}
}

func trainCentroid(samples []Sample) *Model {
	dim := len(samples[0].Features)
	sums := make(map[string][]float64)
	counts := make(map[string]int)

	for _, s := range samples {
		sum, ok := sums[s.Label]
		if !ok {
			sum = make([]float64, dim)
			sums[s.Label] = sum
		}
		floats.Add(sum, s.Features)
		counts[s.Label]++
	}

	labels := make([]string, 0, len(sums))
	for label := range sums {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	centroids := make([][]float64, len(labels))
	for i, label := range labels {
		c := sums[label]
		floats.Scale(1/float64(counts[label]), c)
		centroids[i] = c
	}

	return &Model{
		Kind:      KindCentroid,
		Dim:       dim,
		Labels:    labels,
		Centroids: centroids,
	}
}

func trainKNN(samples []Sample, opts TrainOptions) (*Model, error) {
	k := opts.K
	if k < 0 {
		return nil, fmt.Errorf("k must be non-negative, got %d", k)
	}
	if k == 0 {
		k = DefaultK
	}
	if k > len(samples) {
		k = len(samples)
	}

	stored := make([]Sample, len(samples))
	for i, s := range samples {
		f := make([]float64, len(s.Features))
		copy(f, s.Features)
		stored[i] = Sample{Features: f, Label: s.Label}
	}

	return &Model{
		Kind:    KindKNN,
		Dim:     len(samples[0].Features),
		K:       k,
		Samples: stored,
	}, nil
}

// Predict returns the label assigned to features.
func (m *Model) Predict(features []float64) (string, error) {
	if len(features) != m.Dim {
		return "", fmt.Errorf("%w: got %d, want %d", ErrDimension, len(features), m.Dim)
	}

	switch m.Kind {
	case KindCentroid:
		return m.predictCentroid(features)
	case KindKNN:
		return m.predictKNN(features)
	default:
		return "", fmt.Errorf("%w '%s'", ErrUnknownKind, m.Kind)
	}
}

func (m *Model) predictCentroid(features []float64) (string, error) {
	if len(m.Centroids) == 0 {
		return "", fmt.Errorf("model has no centroids")
	}

	best, bestDist := 0, floats.Distance(features, m.Centroids[0], 2)
	for i := 1; i < len(m.Centroids); i++ {
		if d := floats.Distance(features, m.Centroids[i], 2); d < bestDist {
			best, bestDist = i, d
		}
	}
	return m.Labels[best], nil
}

type neighbour struct {
	label string
	dist  float64
}

func (m *Model) predictKNN(features []float64) (string, error) {
	if len(m.Samples) == 0 {
		return "", fmt.Errorf("model has no samples")
	}

	ns := make([]neighbour, len(m.Samples))
	for i, s := range m.Samples {
		ns[i] = neighbour{label: s.Label, dist: floats.Distance(features, s.Features, 2)}
	}
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].dist < ns[j].dist
	})

	k := m.K
	if k <= 0 || k > len(ns) {
		k = len(ns)
	}

	votes := make(map[string]int)
	total := make(map[string]float64)
	for _, n := range ns[:k] {
		votes[n.label]++
		total[n.label] += n.dist
	}

	labels := make([]string, 0, len(votes))
	for label := range votes {
		labels = append(labels, label)
	}
	// Most votes first, then smaller cumulative distance, then label order.
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if votes[a] != votes[b] {
			return votes[a] > votes[b]
		}
		if total[a] != total[b] {
			return total[a] < total[b]
		}
		return a < b
	})

	return labels[0], nil
}

// Marshal serializes a model for storage.
func (m *Model) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model: %w", err)
	}
	return data, nil
}

// Unmarshal restores a model produced by Marshal.
func Unmarshal(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if _, err := ParseKind(string(m.Kind)); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// validate checks that every stored vector matches Dim so Predict cannot be
// handed mismatched lengths.
func (m *Model) validate() error {
	if m.Dim <= 0 {
		return fmt.Errorf("model has invalid dimension %d", m.Dim)
	}

	switch m.Kind {
	case KindCentroid:
		if len(m.Centroids) == 0 {
			return fmt.Errorf("model has no centroids")
		}
		if len(m.Labels) != len(m.Centroids) {
			return fmt.Errorf("model has %d labels for %d centroids", len(m.Labels), len(m.Centroids))
		}
		for i, c := range m.Centroids {
			if len(c) != m.Dim {
				return fmt.Errorf("%w: centroid %d has %d features, want %d", ErrDimension, i, len(c), m.Dim)
			}
		}
	case KindKNN:
		if len(m.Samples) == 0 {
			return fmt.Errorf("model has no samples")
		}
		for i, s := range m.Samples {
			if len(s.Features) != m.Dim {
				return fmt.Errorf("%w: sample %d has %d features, want %d", ErrDimension, i, len(s.Features), m.Dim)
			}
		}
	}
	return nil
}
