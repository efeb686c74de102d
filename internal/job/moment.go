package job

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	dateLayout        = "2006-01-02"
	timeLayout        = "15:04"
	timeSecondsLayout = "15:04:05"
)

// Moment is a pgAgent exception point: a calendar date, a time of day, or
// both. An excluded run with only a date skips the whole day; with only a
// time it skips that time every day.
type Moment struct {
	Date string // YYYY-MM-DD or empty
	Time string // HH:MM, HH:MM:SS when the seconds are not zero, or empty
}

// ParseMoment accepts "YYYY-MM-DD HH:MM", "YYYY-MM-DD" or "HH:MM". The time
// may carry seconds.
func ParseMoment(s string) (Moment, error) {
	s = strings.TrimSpace(s)
	var m Moment
	switch parts := strings.Fields(s); len(parts) {
	case 1:
		if strings.Contains(parts[0], ":") {
			m.Time = parts[0]
		} else {
			m.Date = parts[0]
		}
	case 2:
		m.Date, m.Time = parts[0], parts[1]
	default:
		return Moment{}, fmt.Errorf("invalid moment %q, want \"YYYY-MM-DD HH:MM\", \"YYYY-MM-DD\" or \"HH:MM\"", s)
	}
	if err := m.Validate(); err != nil {
		return Moment{}, err
	}
	return m.canonical(), nil
}

// Validate checks the date and time layouts.
func (m Moment) Validate() error {
	if m.Date == "" && m.Time == "" {
		return fmt.Errorf("moment needs a date or a time")
	}
	if m.Date != "" {
		if _, err := time.Parse(dateLayout, m.Date); err != nil {
			return fmt.Errorf("invalid date %q", m.Date)
		}
	}
	if m.Time != "" {
		if _, err := time.Parse(timeLayout, m.Time); err != nil {
			if _, err := time.Parse(timeSecondsLayout, m.Time); err != nil {
				return fmt.Errorf("invalid time %q", m.Time)
			}
		}
	}
	return nil
}

// Full reports whether both date and time are set.
func (m Moment) Full() bool {
	return m.Date != "" && m.Time != ""
}

func (m Moment) String() string {
	switch {
	case m.Date == "":
		return m.Time
	case m.Time == "":
		return m.Date
	default:
		return m.Date + " " + m.Time
	}
}

// canonical drops zero seconds: "03:00:00" as returned by the store becomes
// "03:00", while "03:00:30" is kept.
func (m Moment) canonical() Moment {
	t, err := time.Parse(timeSecondsLayout, m.Time)
	if err != nil {
		t, err = time.Parse(timeLayout, m.Time)
	}
	if err != nil {
		return m
	}
	if t.Second() != 0 {
		m.Time = t.Format(timeSecondsLayout)
	} else {
		m.Time = t.Format(timeLayout)
	}
	return m
}

func compareMoments(a, b Moment) int {
	if c := strings.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Time, b.Time)
}

func normalizeMoments(ms []Moment) []Moment {
	if len(ms) == 0 {
		return nil
	}
	out := make([]Moment, len(ms))
	for i, m := range ms {
		out[i] = m.canonical()
	}
	slices.SortFunc(out, compareMoments)
	return slices.Compact(out)
}
