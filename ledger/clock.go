package ledger

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies import and movement timestamps. FEFO tie-breaks use batch
// ids, so the clock does not need to be strictly monotonic.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// =============================================================================
// EXPIRY PARSING
// =============================================================================

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExpiry parses an expiry date as RFC3339 or a plain YYYY-MM-DD day
// (midnight UTC).
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}
