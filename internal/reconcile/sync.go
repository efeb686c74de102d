// Package reconcile computes the operations that make a store match a set of
// desired jobs and applies them in one batch.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"pgagent-yaml/internal/compat"
	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

// Store is the part of a job store the reconciler needs.
type Store interface {
	ListJobs(ctx context.Context) ([]job.Job, error)
	Apply(ctx context.Context, ops []Operation) (Result, error)
}

// Checker is implemented by stores with constraints beyond the entity
// model. Check runs on the desired jobs before the store is read.
type Checker interface {
	Check(jobs []job.Job) error
}

// Profiler is implemented by stores that know their schema version. The
// version is checked before the store is read, and desired jobs are
// projected onto the profile so fields the schema lacks never show up as
// differences.
type Profiler interface {
	Profile(ctx context.Context) (compat.Profile, error)
}

// Reconciler drives Prepare and Apply against one store.
type Reconciler struct {
	store Store
	log   *slog.Logger
}

// New creates a Reconciler.
func New(store Store, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{store: store, log: log}
}

// Report is the outcome of Sync.
type Report struct {
	Plan    *Plan
	Applied int
	DryRun  bool
}

// Sync prepares the plan and applies it unless opts.DryRun is set. The
// store is read once and written at most once. A failed Apply is returned
// as is: nothing is retried.
func (r *Reconciler) Sync(ctx context.Context, desired []job.Job, opts Options) (Report, error) {
	plan, err := r.Prepare(ctx, desired, opts)
	if err != nil {
		return Report{}, err
	}
	if opts.DryRun {
		return Report{Plan: plan, DryRun: true}, nil
	}
	applied, err := r.Apply(ctx, plan)
	if err != nil {
		return Report{Plan: plan}, err
	}
	return Report{Plan: plan, Applied: applied}, nil
}

// Prepare validates desired, checks the store version and diffs desired
// against the current store contents. It never writes.
func (r *Reconciler) Prepare(ctx context.Context, desired []job.Job, opts Options) (*Plan, error) {
	if err := validate(desired); err != nil {
		return nil, err
	}

	if p, ok := r.store.(Profiler); ok {
		profile, err := p.Profile(ctx)
		if err != nil {
			return nil, err
		}
		if err := compat.CheckSupported(r.log, profile.Info, opts.IgnoreVersion); err != nil {
			return nil, err
		}
		projected, dropped := profile.Project(desired)
		if len(dropped) > 0 {
			if !opts.IgnoreVersion {
				return nil, compat.DroppedError(profile.Info, dropped)
			}
			for _, d := range dropped {
				r.log.Warn("value not stored by this schema version, dropped",
					slog.String("entity", d.Entity),
					slog.String("field", string(d.Field)),
					slog.String("version", profile.Info.String()),
				)
			}
		}
		desired = projected
	}

	if c, ok := r.store.(Checker); ok {
		if err := c.Check(normalized(desired)); err != nil {
			return nil, err
		}
	}

	actual, err := r.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	plan := NewPlan(desired, actual, opts)
	r.log.Debug("sync plan built",
		slog.Int("desired", len(plan.Desired)),
		slog.Int("actual", len(plan.Actual)),
		slog.Int("operations", len(plan.Ops)),
	)
	return plan, nil
}

// Apply writes plan to the store in one transaction and returns the number
// of applied operations.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) (int, error) {
	if plan.Empty() {
		return 0, nil
	}
	res, err := r.store.Apply(ctx, plan.Ops)
	if err != nil {
		r.log.Error("sync failed, store rolled back", slog.Any("error", err))
		return 0, err
	}
	r.log.Info("sync applied", slog.Int("operations", res.Applied), slog.Int("jobs", len(plan.Jobs())))
	return res.Applied, nil
}

func validate(jobs []job.Job) error {
	seen := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if seen[j.Name] {
			return shared.NewValidationError(fmt.Sprintf("job %q", j.Name), "name", "defined more than once")
		}
		seen[j.Name] = true
		if err := j.Validate(); err != nil {
			return err
		}
	}
	return nil
}
