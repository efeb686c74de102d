// Package job holds the in-memory model of pgAgent jobs: jobs, their steps
// and their schedules. Values are plain structs; Validate and Normalize
// enforce the invariants every other layer relies on.
package job

import (
	"sort"
	"time"
)

// DefaultClass is the job class pgAgent installs as id 1.
const DefaultClass = "Routine Maintenance"

// StepKind selects how pgAgent executes a step body.
type StepKind string

const (
	// KindSQL runs the body as SQL against Database (or ConnStr).
	KindSQL StepKind = "sql"
	// KindBatch runs the body as a shell/batch script on the agent host.
	KindBatch StepKind = "batch"
)

// Valid reports whether k is a known step kind.
func (k StepKind) Valid() bool {
	return k == KindSQL || k == KindBatch
}

// OnError is the step failure policy.
type OnError string

const (
	// OnErrorFail marks the job as failed and stops it.
	OnErrorFail OnError = "fail"
	// OnErrorIgnore ignores the failure and continues with the next step.
	OnErrorIgnore OnError = "ignore"
	// OnErrorSuccess stops the job and reports success.
	OnErrorSuccess OnError = "success"
)

// Valid reports whether o is a known failure policy.
func (o OnError) Valid() bool {
	return o == OnErrorFail || o == OnErrorIgnore || o == OnErrorSuccess
}

// Job is a named unit of scheduled work.
type Job struct {
	Name      string
	Class     string
	Enabled   bool
	Host      string
	Comment   string
	Steps     []Step
	Schedules []Schedule

	// Created and Changed are managed by the store. They are never
	// serialized and never take part in comparisons.
	Created time.Time
	Changed time.Time
}

// Step is one action of a job. Sequence is 1-based and defines execution order.
type Step struct {
	Sequence int
	Name     string
	Kind     StepKind
	Enabled  bool
	OnError  OnError
	Database string
	ConnStr  string
	Comment  string
	Body     string
}

// Schedule is a recurrence rule attached to a job.
type Schedule struct {
	Name      string
	Enabled   bool
	Comment   string
	Minutes   Recurrence
	Hours     Recurrence
	MonthDays Recurrence
	Months    Recurrence
	WeekDays  Recurrence
	Start     *time.Time
	End       *time.Time

	ExcludedRuns []Moment
	ExtraRuns    []Moment
}

// Step returns the step with the given sequence.
func (j Job) Step(sequence int) (Step, bool) {
	for _, s := range j.Steps {
		if s.Sequence == sequence {
			return s, true
		}
	}
	return Step{}, false
}

// Schedule returns the schedule with the given name.
func (j Job) Schedule(name string) (Schedule, bool) {
	for _, s := range j.Schedules {
		if s.Name == name {
			return s, true
		}
	}
	return Schedule{}, false
}

// Normalize puts the job in canonical form: steps ordered by sequence and
// renumbered 1..n, schedules ordered by name, sets sorted and deduplicated.
// Timestamps are converted to UTC and truncated to the microseconds
// PostgreSQL keeps.
func (j *Job) Normalize() {
	sort.SliceStable(j.Steps, func(a, b int) bool {
		return j.Steps[a].Sequence < j.Steps[b].Sequence
	})
	for i := range j.Steps {
		j.Steps[i].Sequence = i + 1
	}

	sort.SliceStable(j.Schedules, func(a, b int) bool {
		return j.Schedules[a].Name < j.Schedules[b].Name
	})
	for i := range j.Schedules {
		j.Schedules[i].normalize()
	}
}

func (s *Schedule) normalize() {
	s.Minutes = s.Minutes.normalized(MinuteField)
	s.Hours = s.Hours.normalized(HourField)
	s.MonthDays = s.MonthDays.normalized(MonthDayField)
	s.Months = s.Months.normalized(MonthField)
	s.WeekDays = s.WeekDays.normalized(WeekDayField)
	if s.Start != nil {
		t := s.Start.UTC().Truncate(time.Microsecond)
		s.Start = &t
	}
	if s.End != nil {
		t := s.End.UTC().Truncate(time.Microsecond)
		s.End = &t
	}
	s.ExcludedRuns = normalizeMoments(s.ExcludedRuns)
	s.ExtraRuns = normalizeMoments(s.ExtraRuns)
}

// New validates j and returns its normalized copy. Validation runs before
// normalization so that duplicate sequences are reported, not renumbered.
func New(j Job) (Job, error) {
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	out := j.Clone()
	out.Normalize()
	return out, nil
}

// Clone returns a deep copy of j.
func (j Job) Clone() Job {
	out := j
	out.Steps = append([]Step(nil), j.Steps...)
	out.Schedules = make([]Schedule, len(j.Schedules))
	for i, s := range j.Schedules {
		out.Schedules[i] = s.clone()
	}
	if j.Schedules == nil {
		out.Schedules = nil
	}
	return out
}

func (s Schedule) clone() Schedule {
	out := s
	out.Minutes = s.Minutes.clone()
	out.Hours = s.Hours.clone()
	out.MonthDays = s.MonthDays.clone()
	out.Months = s.Months.clone()
	out.WeekDays = s.WeekDays.clone()
	if s.Start != nil {
		t := *s.Start
		out.Start = &t
	}
	if s.End != nil {
		t := *s.End
		out.End = &t
	}
	out.ExcludedRuns = append([]Moment(nil), s.ExcludedRuns...)
	out.ExtraRuns = append([]Moment(nil), s.ExtraRuns...)
	return out
}

// SortByName orders jobs by name in place.
func SortByName(jobs []Job) {
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].Name < jobs[b].Name })
}

// Names returns the job names in the order given.
func Names(jobs []Job) []string {
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name
	}
	return names
}
