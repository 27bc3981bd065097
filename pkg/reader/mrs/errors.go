package mrs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeaderLine is wrapped by every *HeaderLineError.
	ErrMalformedHeaderLine = errors.New("malformed header line")

	// ErrIncompleteHeader is returned when the input ends before the second
	// $END sentinel closes the header region.
	ErrIncompleteHeader = errors.New("incomplete header: expected two $END lines")

	// ErrMalformedNumericToken is wrapped by every *NumericTokenError.
	ErrMalformedNumericToken = errors.New("malformed numeric token")
)

// HeaderLineError reports a header region line that is not a "name = value"
// assignment. Line is 1-based.
type HeaderLineError struct {
	Line    int
	Content string
}

func (e *HeaderLineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, ErrMalformedHeaderLine, e.Content)
}

func (e *HeaderLineError) Unwrap() error {
	return ErrMalformedHeaderLine
}

// NumericTokenError reports a data region token that is not a floating-point
// number. Err holds the strconv error.
type NumericTokenError struct {
	Line  int
	Token string
	Err   error
}

func (e *NumericTokenError) Error() string {
	return fmt.Sprintf("line %d: %v %q: %v", e.Line, ErrMalformedNumericToken, e.Token, e.Err)
}

func (e *NumericTokenError) Unwrap() []error {
	return []error{ErrMalformedNumericToken, e.Err}
}
