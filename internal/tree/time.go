package tree

import (
	"fmt"
	"time"
)

// TimeLayout is the xsd:dateTime rendering used for every timestamp written
// by ldesmirror: UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Truncate reduces t to the precision that survives a round trip through
// FormatTime and ParseTime.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTime renders t as an xsd:dateTime lexical value.
func FormatTime(t time.Time) string {
	return Truncate(t).Format(TimeLayout)
}

// ParseTime parses an xsd:dateTime lexical value. Any RFC 3339 value is
// accepted; the result is in UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dateTime %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TimeLiteral returns t as a typed xsd:dateTime literal.
func TimeLiteral(t time.Time) Term {
	return Literal(FormatTime(t), XSDDateTime)
}

// LiteralTime extracts the time from an xsd:dateTime literal.
// Terms that are not xsd:dateTime literals are rejected.
func LiteralTime(term Term) (time.Time, error) {
	if term.Kind != KindLiteral || term.Datatype != XSDDateTime {
		return time.Time{}, fmt.Errorf("could not interpret %s as it was not %s", term, XSDDateTime)
	}
	return ParseTime(term.Value)
}
