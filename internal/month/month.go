// Package month handles the YYYY-MM keys that bucket assignments and activity.
package month

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month. The zero value is invalid.
type Month struct {
	Year  int
	Month time.Month
}

// New returns the month for year and m.
func New(year int, m time.Month) Month {
	return Month{Year: year, Month: m}
}

// Of returns the month containing t.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Parse parses "2025-01" into a Month.
func Parse(s string) (Month, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, fmt.Errorf("invalid month format: %q", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("invalid year in month %q: %w", s, err)
	}

	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Month{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	if m < 1 || m > 12 {
		return Month{}, fmt.Errorf("month out of range in %q", s)
	}

	return Month{Year: year, Month: time.Month(m)}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Month {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Index is a strictly increasing ordinal, convenient for arithmetic.
func (m Month) Index() int {
	return m.Year*12 + int(m.Month) - 1
}

// FromIndex is the inverse of Index.
func FromIndex(i int) Month {
	return Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// Add returns m shifted by n months.
func (m Month) Add(n int) Month {
	return FromIndex(m.Index() + n)
}

// Next returns the following month.
func (m Month) Next() Month { return m.Add(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.Add(-1) }

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool { return m.Index() < o.Index() }

// After reports whether m is later than o.
func (m Month) After(o Month) bool { return m.Index() > o.Index() }

// Start returns midnight UTC on the first day of m.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t's calendar date falls in m.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Range returns every month from first through last inclusive.
// It returns nil when last is before first.
func Range(first, last Month) []Month {
	if last.Before(first) {
		return nil
	}
	out := make([]Month, 0, last.Index()-first.Index()+1)
	for i := first.Index(); i <= last.Index(); i++ {
		out = append(out, FromIndex(i))
	}
	return out
}

// MarshalJSON encodes m as "YYYY-MM".
func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes "YYYY-MM".
func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
