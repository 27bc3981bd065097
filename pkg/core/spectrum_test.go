package core

import (
	"errors"
	"math"
	"testing"
)

func TestSpectrumValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    *Spectrum
		wantErr bool
	}{
		{
			name:    "valid spectrum",
			spec:    &Spectrum{Bins: []float64{0.1, 2.5, 0}},
			wantErr: false,
		},
		{
			name:    "no bins",
			spec:    &Spectrum{},
			wantErr: true,
		},
		{
			name:    "negative bin",
			spec:    &Spectrum{Bins: []float64{1, -0.5}},
			wantErr: true,
		},
		{
			name:    "NaN bin",
			spec:    &Spectrum{Bins: []float64{math.NaN()}},
			wantErr: true,
		},
		{
			name:    "infinite bin",
			spec:    &Spectrum{Bins: []float64{math.Inf(1)}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var verr *ValidationError
			if err != nil && !errors.As(err, &verr) {
				t.Errorf("Validate() error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestSpectrumMax(t *testing.T) {
	spec := &Spectrum{Bins: []float64{0.5, 3.0, 1.0}}

	v, idx := spec.Max()
	if v != 3.0 || idx != 1 {
		t.Errorf("Max() = (%v, %d), want (3, 1)", v, idx)
	}

	empty := &Spectrum{}
	if _, idx := empty.Max(); idx != -1 {
		t.Errorf("Max() on empty spectrum index = %d, want -1", idx)
	}
}

func TestSpectrumFeaturesIsCopy(t *testing.T) {
	spec := &Spectrum{Bins: []float64{1, 2}}
	f := spec.Features()
	f[0] = 99

	if spec.Bins[0] != 1 {
		t.Errorf("Features() shares backing array with Bins")
	}
}

func TestHeaderString(t *testing.T) {
	h := Header{"b": "2", "a": "1"}

	expected := "a = 1\nb = 2\n"
	if got := h.String(); got != expected {
		t.Errorf("String() = %q, want %q", got, expected)
	}
}

func TestScanValidation(t *testing.T) {
	tests := []struct {
		name    string
		scan    *Scan
		wantErr bool
	}{
		{"valid scan", &Scan{FileName: "05_E2", Contents: []byte("x"), GroupLabel: "groupA"}, false},
		{"missing name", &Scan{Contents: []byte("x"), GroupLabel: "groupA"}, true},
		{"empty contents", &Scan{FileName: "05_E2", GroupLabel: "groupA"}, true},
		{"blank label", &Scan{FileName: "05_E2", Contents: []byte("x"), GroupLabel: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
