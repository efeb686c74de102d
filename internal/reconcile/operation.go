package reconcile

import (
	"fmt"
	"strings"

	"pgagent-yaml/internal/job"
)

// OpKind is the type of a store mutation.
type OpKind int

const (
	CreateJob OpKind = iota + 1
	UpdateJob
	DeleteJob
	CreateStep
	UpdateStep
	DeleteStep
	CreateSchedule
	UpdateSchedule
	DeleteSchedule
)

var opNames = map[OpKind]string{
	CreateJob:      "CreateJob",
	UpdateJob:      "UpdateJob",
	DeleteJob:      "DeleteJob",
	CreateStep:     "CreateStep",
	UpdateStep:     "UpdateStep",
	DeleteStep:     "DeleteStep",
	CreateSchedule: "CreateSchedule",
	UpdateSchedule: "UpdateSchedule",
	DeleteSchedule: "DeleteSchedule",
}

func (k OpKind) String() string {
	if n, ok := opNames[k]; ok {
		return n
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Operation is one store mutation. Job names the owning job for every kind.
//
// For job operations Data carries the desired job (steps and schedules are
// ignored, they have their own operations). Step operations carry the step:
// the desired one for create and update, the actual one for delete, so the
// store resolves it by Sequence against the snapshot the plan was built from.
// Schedule operations work the same way keyed by Schedule.Name.
type Operation struct {
	Kind     OpKind
	Job      string
	Data     job.Job
	Step     job.Step
	Schedule job.Schedule

	// Fields lists what an update changes, for display only: the store
	// rewrites the whole row.
	Fields []string
	// Cascade marks deletes emitted because the owning job is being deleted.
	Cascade bool
	// Window tells the store to write schedule start and end.
	Window bool
}

// String renders the operation as `UpdateStep(job="nightly_vacuum", sequence=1)`.
func (o Operation) String() string {
	var b strings.Builder
	b.WriteString(o.Kind.String())
	fmt.Fprintf(&b, "(job=%q", o.Job)
	switch o.Kind {
	case CreateStep, UpdateStep, DeleteStep:
		fmt.Fprintf(&b, ", sequence=%d", o.Step.Sequence)
	case CreateSchedule, UpdateSchedule, DeleteSchedule:
		fmt.Fprintf(&b, ", schedule=%q", o.Schedule.Name)
	}
	b.WriteString(")")
	return b.String()
}

// IsDelete reports whether the operation removes an entity.
func (o Operation) IsDelete() bool {
	return o.Kind == DeleteJob || o.Kind == DeleteStep || o.Kind == DeleteSchedule
}

// Result is the outcome of a successful Apply.
type Result struct {
	Applied int
}
