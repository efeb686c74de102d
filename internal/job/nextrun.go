package job

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSpec renders the recurrence as a standard five-field cron expression.
// ok is false when the schedule cannot be expressed in cron: "last day of
// month" has no cron equivalent, and pgAgent requires both the month day and
// the week day to match while cron accepts either.
func (s Schedule) CronSpec() (spec string, ok bool) {
	if s.MonthDays.Contains(LastDay) && !s.MonthDays.Any {
		return "", false
	}
	if !s.MonthDays.Any && !s.WeekDays.Any {
		return "", false
	}
	fields := []string{
		cronField(s.Minutes),
		cronField(s.Hours),
		cronField(s.MonthDays),
		cronField(s.Months),
		cronField(s.WeekDays),
	}
	return strings.Join(fields, " "), true
}

func cronField(r Recurrence) string {
	if r.Any {
		return "*"
	}
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// NextRun returns the first firing time strictly after the given time,
// honouring the start/end window. A zero time with ok=true means the
// schedule never fires; ok=false means the recurrence has no cron form.
func (s Schedule) NextRun(after time.Time) (next time.Time, ok bool) {
	spec, ok := s.CronSpec()
	if !ok {
		return time.Time{}, false
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, false
	}
	from := after
	if s.Start != nil && s.Start.After(from) {
		from = s.Start.Add(-time.Second)
	}
	next = sched.Next(from)
	if !next.IsZero() && s.End != nil && next.After(*s.End) {
		return time.Time{}, true
	}
	return next, true
}
