package domain

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a UTC calendar day. All dates in the clean dataset and in
// alerts are whole days; wall-clock precision never enters detector
// logic.
type Day struct {
	t time.Time
}

// NewDay truncates t to its UTC calendar day.
func NewDay(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// MustDay is a test and fixture helper; it panics on a malformed date.
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) IsZero() bool       { return d.t.IsZero() }
func (d Day) Time() time.Time    { return d.t }
func (d Day) String() string     { return d.t.Format(dayLayout) }
func (d Day) AddDays(n int) Day  { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) Before(o Day) bool  { return d.t.Before(o.t) }
func (d Day) After(o Day) bool   { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool   { return d.t.Equal(o.t) }
func (d Day) DaysSince(o Day) int {
	return int(d.t.Sub(o.t) / (24 * time.Hour))
}

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Day) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid date value %s", string(data))
	}
	parsed, err := ParseDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
