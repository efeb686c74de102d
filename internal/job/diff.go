package job

import (
	"slices"
	"time"
)

// ChangedFields lists the scalar job fields that differ between j and o.
// Steps, schedules and the store-managed timestamps are not compared.
func (j Job) ChangedFields(o Job) []string {
	var fields []string
	if j.Name != o.Name {
		fields = append(fields, "name")
	}
	if j.Class != o.Class {
		fields = append(fields, "class")
	}
	if j.Enabled != o.Enabled {
		fields = append(fields, "enabled")
	}
	if j.Host != o.Host {
		fields = append(fields, "host")
	}
	if j.Comment != o.Comment {
		fields = append(fields, "comment")
	}
	return fields
}

// ChangedFields lists the step fields that differ between s and o.
func (s Step) ChangedFields(o Step) []string {
	var fields []string
	if s.Sequence != o.Sequence {
		fields = append(fields, "sequence")
	}
	if s.Name != o.Name {
		fields = append(fields, "name")
	}
	if s.Kind != o.Kind {
		fields = append(fields, "kind")
	}
	if s.Enabled != o.Enabled {
		fields = append(fields, "enabled")
	}
	if s.OnError != o.OnError {
		fields = append(fields, "on_error")
	}
	if s.Database != o.Database {
		fields = append(fields, "database")
	}
	if s.ConnStr != o.ConnStr {
		fields = append(fields, "connection_string")
	}
	if s.Comment != o.Comment {
		fields = append(fields, "comment")
	}
	if s.Body != o.Body {
		fields = append(fields, "body")
	}
	return fields
}

// ChangedFields lists the schedule fields that differ between s and o.
func (s Schedule) ChangedFields(o Schedule) []string {
	var fields []string
	if s.Name != o.Name {
		fields = append(fields, "name")
	}
	if s.Enabled != o.Enabled {
		fields = append(fields, "enabled")
	}
	if s.Comment != o.Comment {
		fields = append(fields, "comment")
	}
	if !s.Minutes.Equal(o.Minutes) {
		fields = append(fields, MinuteField.Name)
	}
	if !s.Hours.Equal(o.Hours) {
		fields = append(fields, HourField.Name)
	}
	if !s.MonthDays.Equal(o.MonthDays) {
		fields = append(fields, MonthDayField.Name)
	}
	if !s.Months.Equal(o.Months) {
		fields = append(fields, MonthField.Name)
	}
	if !s.WeekDays.Equal(o.WeekDays) {
		fields = append(fields, WeekDayField.Name)
	}
	if !equalTime(s.Start, o.Start) {
		fields = append(fields, "start")
	}
	if !equalTime(s.End, o.End) {
		fields = append(fields, "end")
	}
	if !slices.Equal(s.ExcludedRuns, o.ExcludedRuns) {
		fields = append(fields, "excluded_runs")
	}
	if !slices.Equal(s.ExtraRuns, o.ExtraRuns) {
		fields = append(fields, "extra_runs")
	}
	return fields
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
