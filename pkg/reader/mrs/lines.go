package mrs

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// endSentinel closes a header sub-block. The header region ends at the second one.
const endSentinel = "$END"

// lineEndings folds CRLF and lone CR line endings into LF.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// assignmentPattern splits a header line at the first whitespace-"="-whitespace run.
var assignmentPattern = regexp.MustCompile(`^(.+?)\s+=\s+(.+)$`)

// isDirective reports whether a trimmed line is a "$..." directive line.
// Empty lines are not directives.
func isDirective(line string) bool {
	return strings.HasPrefix(line, "$")
}

// parseAssignment extracts the field name and cleaned value from a trimmed
// header line. ok is false if the line is not an assignment.
func parseAssignment(line string) (name, value string, ok bool) {
	m := assignmentPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), cleanValue(m[2]), true
}

// cleanValue strips trailing commas, then trailing quotes. A leading quote is
// removed only when a trailing quote was present, so an unterminated value
// such as 'John Doe keeps its quote.
func cleanValue(v string) string {
	v = strings.TrimRight(v, ",")
	unquoted := strings.TrimRight(v, "'")
	if unquoted == v {
		return v
	}
	return strings.TrimPrefix(unquoted, "'")
}

// splitPair splits a trimmed data line at its first whitespace run. ok is
// false when the line does not hold two tokens.
func splitPair(line string) (first, second string, ok bool) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i <= 0 {
		return "", "", false
	}
	second = strings.TrimSpace(line[i:])
	if second == "" {
		return "", "", false
	}
	return line[:i], second, true
}

// parseSample builds one complex sample from a trimmed data line. ok is false
// when the line carries fewer than two tokens.
func parseSample(lineNum int, line string) (sample complex128, ok bool, err error) {
	first, second, ok := splitPair(line)
	if !ok {
		return 0, false, nil
	}

	re, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, false, &NumericTokenError{Line: lineNum, Token: first, Err: err}
	}

	im, err := strconv.ParseFloat(second, 64)
	if err != nil {
		return 0, false, &NumericTokenError{Line: lineNum, Token: second, Err: err}
	}

	return complex(re, im), true, nil
}
