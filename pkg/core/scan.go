package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sample is one time-domain amplitude measurement. The real part comes from
// the first token of a data line, the imaginary part from the second.
type Sample = complex128

// TimeSeries is the ordered sequence of samples read from a data region.
type TimeSeries []Sample

// Header maps header field names to their raw string values.
type Header map[string]string

// Keys returns the field names in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the header as "name = value" lines in key order.
func (h Header) String() string {
	var b strings.Builder
	for _, k := range h.Keys() {
		fmt.Fprintf(&b, "%s = %s\n", k, h[k])
	}
	return b.String()
}

// Document is a fully parsed MRS data file.
type Document struct {
	Header  Header
	Samples TimeSeries
}

// Scan is an uploaded MRS data file together with its therapy group label.
type Scan struct {
	ID         string
	FileName   string
	Contents   []byte
	GroupLabel string
	CreatedAt  time.Time
}

// Validate checks that a scan can be stored.
func (s *Scan) Validate() error {
	var errs []string

	if s.FileName == "" {
		errs = append(errs, "file name is required")
	}
	if len(s.Contents) == 0 {
		errs = append(errs, "file contents are empty")
	}
	if strings.TrimSpace(s.GroupLabel) == "" {
		errs = append(errs, "group label is required")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Scan",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ClassifierRecord is a trained classifier as persisted in storage.
type ClassifierRecord struct {
	ID         string
	Name       string
	Type       string
	Serialized []byte
	CreatedAt  time.Time
}
