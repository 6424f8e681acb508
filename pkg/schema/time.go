// Package schema defines the wire-level data structures exchanged with the nightpass API.
package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts accepted when decoding timestamps, tried in order.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// Time is a timestamp that tolerates the several textual formats the API emits.
type Time struct {
	time.Time
}

// NewTime wraps t, normalized to UTC.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// ParseTime tries every accepted layout in order.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot decode date: %q", s)
}

// MarshalJSON keeps full precision and the original offset, so any decoded value
// encodes back to an equal one.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
