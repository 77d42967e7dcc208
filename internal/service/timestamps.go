package service

import (
	"strings"
	"time"
)

// timestampFormats are the accepted client date formats, tried in order. The
// dashboard sends RFC3339; the bare forms cover hand-entered values from the
// expected-stop picker.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseOptionalTimestamp parses an optional client-supplied timestamp.
// An empty string is a legitimate absent value: (nil, true).
// A non-empty string that matches no accepted format returns (nil, false) so
// the caller can log it instead of masking a client bug as "no value".
func ParseOptionalTimestamp(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}
