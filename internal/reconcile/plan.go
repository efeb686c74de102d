package reconcile

import (
	"slices"

	"pgagent-yaml/internal/job"
)

// Options controls plan construction and Sync.
type Options struct {
	// Scope limits management to the named jobs. Store jobs outside it are
	// neither compared nor deleted. Nil means the whole store.
	Scope []string
	// Windows names the schedules whose start and end are compared and
	// written. Every other schedule keeps the window the store holds.
	Windows job.WindowSet
	// DryRun builds the plan without applying it.
	DryRun bool
	// IgnoreVersion continues on an unsupported store version and drops
	// values the schema cannot hold instead of failing.
	IgnoreVersion bool
}

// Plan is the ordered operation sequence turning Actual into Desired.
// Desired and Actual are the normalized inputs the plan was built from.
type Plan struct {
	Ops     []Operation
	Desired []job.Job
	Actual  []job.Job
}

// Empty reports whether the store already matches.
func (p *Plan) Empty() bool {
	return len(p.Ops) == 0
}

// Count returns the number of operations of kind k.
func (p *Plan) Count(k OpKind) int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Jobs returns the names of the jobs the plan touches, in plan order.
func (p *Plan) Jobs() []string {
	var names []string
	for _, op := range p.Ops {
		if len(names) == 0 || names[len(names)-1] != op.Job {
			names = append(names, op.Job)
		}
	}
	return names
}

// NewPlan diffs desired against actual. Jobs are matched by name, steps by
// sequence and schedules by name; entities that compare equal produce no
// operation. Operations are grouped per job in job name order:
//
//	deleted job: DeleteStep*, DeleteSchedule* (Cascade), DeleteJob
//	created job: CreateJob, CreateStep*, CreateSchedule*
//	changed job: UpdateJob?, deletes, updates, creates
func NewPlan(desired, actual []job.Job, opts Options) *Plan {
	desired = normalized(desired)
	actual = normalized(inScope(actual, opts.Scope))
	keepStoredWindows(desired, actual, opts.Windows)

	p := &Plan{Desired: desired, Actual: actual}
	parts := Partition(desired, actual, func(j job.Job) string { return j.Name })

	groups := make(map[string][]Operation, len(desired)+len(actual))
	for _, j := range parts.Create {
		groups[j.Name] = createJobOps(j, opts)
	}
	for _, j := range parts.Delete {
		groups[j.Name] = deleteJobOps(j)
	}
	for _, pair := range parts.Both {
		if ops := changeJobOps(pair.Desired, pair.Actual, opts); len(ops) > 0 {
			groups[pair.Desired.Name] = ops
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p.Ops = append(p.Ops, groups[name]...)
	}
	return p
}

func normalized(jobs []job.Job) []job.Job {
	out := make([]job.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
		out[i].Normalize()
	}
	job.SortByName(out)
	return out
}

// keepStoredWindows copies the store's start and end into desired schedules
// that do not name a window. A missing start is always taken from the store:
// pgAgent requires one and fills it with now() on write.
func keepStoredWindows(desired, actual []job.Job, windows job.WindowSet) {
	stored := make(map[string]job.Job, len(actual))
	for _, j := range actual {
		stored[j.Name] = j
	}
	for i := range desired {
		have, ok := stored[desired[i].Name]
		if !ok {
			continue
		}
		for k := range desired[i].Schedules {
			sc := &desired[i].Schedules[k]
			old, ok := have.Schedule(sc.Name)
			if !ok {
				continue
			}
			if !windows.Has(desired[i].Name, sc.Name) {
				sc.Start, sc.End = old.Start, old.End
			} else if sc.Start == nil {
				sc.Start = old.Start
			}
		}
	}
}

func inScope(jobs []job.Job, scope []string) []job.Job {
	if scope == nil {
		return jobs
	}
	var out []job.Job
	for _, j := range jobs {
		if slices.Contains(scope, j.Name) {
			out = append(out, j)
		}
	}
	return out
}

func createJobOps(j job.Job, opts Options) []Operation {
	ops := []Operation{{Kind: CreateJob, Job: j.Name, Data: j}}
	for _, st := range j.Steps {
		ops = append(ops, Operation{Kind: CreateStep, Job: j.Name, Step: st})
	}
	for _, sc := range j.Schedules {
		ops = append(ops, scheduleOp(CreateSchedule, j.Name, sc, opts))
	}
	return ops
}

func deleteJobOps(j job.Job) []Operation {
	var ops []Operation
	for _, st := range j.Steps {
		ops = append(ops, Operation{Kind: DeleteStep, Job: j.Name, Step: st, Cascade: true})
	}
	for _, sc := range j.Schedules {
		ops = append(ops, Operation{Kind: DeleteSchedule, Job: j.Name, Schedule: sc, Cascade: true})
	}
	return append(ops, Operation{Kind: DeleteJob, Job: j.Name, Data: j})
}

func changeJobOps(desired, actual job.Job, opts Options) []Operation {
	var ops []Operation
	if fields := desired.ChangedFields(actual); len(fields) > 0 {
		ops = append(ops, Operation{Kind: UpdateJob, Job: desired.Name, Data: desired, Fields: fields})
	}

	steps := Partition(desired.Steps, actual.Steps, func(s job.Step) int { return s.Sequence })
	schedules := Partition(desired.Schedules, actual.Schedules, func(s job.Schedule) string { return s.Name })

	for _, st := range steps.Delete {
		ops = append(ops, Operation{Kind: DeleteStep, Job: desired.Name, Step: st})
	}
	for _, sc := range schedules.Delete {
		ops = append(ops, Operation{Kind: DeleteSchedule, Job: desired.Name, Schedule: sc})
	}
	for _, pair := range steps.Both {
		if fields := pair.Desired.ChangedFields(pair.Actual); len(fields) > 0 {
			ops = append(ops, Operation{Kind: UpdateStep, Job: desired.Name, Step: pair.Desired, Fields: fields})
		}
	}
	for _, pair := range schedules.Both {
		if fields := pair.Desired.ChangedFields(pair.Actual); len(fields) > 0 {
			op := scheduleOp(UpdateSchedule, desired.Name, pair.Desired, opts)
			op.Fields = fields
			ops = append(ops, op)
		}
	}
	for _, st := range steps.Create {
		ops = append(ops, Operation{Kind: CreateStep, Job: desired.Name, Step: st})
	}
	for _, sc := range schedules.Create {
		ops = append(ops, scheduleOp(CreateSchedule, desired.Name, sc, opts))
	}
	return ops
}

func scheduleOp(kind OpKind, jobName string, sc job.Schedule, opts Options) Operation {
	return Operation{Kind: kind, Job: jobName, Schedule: sc, Window: opts.Windows.Has(jobName, sc.Name)}
}
