package pgagent

import (
	"context"
	"database/sql"
	"fmt"

	"pgagent-yaml/internal/compat"
	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/reconcile"
	"pgagent-yaml/internal/shared"
)

// Apply executes ops in order inside one transaction. The first failing
// operation rolls everything back and is reported as a *shared.StoreError
// carrying its position in ops.
func (s *Store) Apply(ctx context.Context, ops []reconcile.Operation) (reconcile.Result, error) {
	if len(ops) == 0 {
		return reconcile.Result{}, nil
	}
	profile, err := s.Profile(ctx)
	if err != nil {
		return reconcile.Result{}, err
	}

	var result reconcile.Result
	err = s.runner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		w := &writer{store: s, tx: tx, profile: profile}
		if err := w.loadIndex(ctx); err != nil {
			return &shared.StoreError{Op: "load index", Index: -1, Err: err}
		}
		for i, op := range ops {
			if err := w.apply(ctx, op); err != nil {
				return &shared.StoreError{Op: op.String(), Index: i, Err: err}
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		if shared.IsStore(err) {
			return reconcile.Result{}, err
		}
		return reconcile.Result{}, &shared.StoreError{Op: "apply", Index: -1, Err: err}
	}
	return result, nil
}

// writer holds the private name to id index for one Apply transaction.
// Steps are indexed by the sequence they had when the transaction started,
// which is the snapshot the plan was computed against.
type writer struct {
	store   *Store
	tx      *sql.Tx
	profile compat.Profile

	classes   map[string]int64
	jobs      map[string]int64
	steps     map[int64][]int64           // jobid -> jstid by sequence-1
	schedules map[int64]map[string]int64 // jobid -> name -> jscid
}

func (w *writer) loadIndex(ctx context.Context) error {
	w.classes = make(map[string]int64)
	w.jobs = make(map[string]int64)
	w.steps = make(map[int64][]int64)
	w.schedules = make(map[int64]map[string]int64)

	if err := w.scanPairs(ctx, selectClassesQuery, func(id int64, name string) {
		w.classes[name] = id
	}); err != nil {
		return fmt.Errorf("read job classes: %w", err)
	}
	if err := w.scanPairs(ctx, `SELECT jobid, jobname FROM pgagent.pga_job`, func(id int64, name string) {
		w.jobs[name] = id
	}); err != nil {
		return fmt.Errorf("read jobs: %w", err)
	}

	rows, err := w.tx.QueryContext(ctx, w.store.dialect.SQL(
		`SELECT jstid, jstjobid FROM pgagent.pga_jobstep ORDER BY jstjobid, jstname COLLATE "C", jstid`))
	if err != nil {
		return fmt.Errorf("read steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, jobID int64
		if err := rows.Scan(&id, &jobID); err != nil {
			return err
		}
		w.steps[jobID] = append(w.steps[jobID], id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	srows, err := w.tx.QueryContext(ctx, w.store.dialect.SQL(
		`SELECT jscid, jscjobid, jscname FROM pgagent.pga_schedule`))
	if err != nil {
		return fmt.Errorf("read schedules: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var id, jobID int64
		var name string
		if err := srows.Scan(&id, &jobID, &name); err != nil {
			return err
		}
		w.scheduleIndex(jobID)[name] = id
	}
	return srows.Err()
}

func (w *writer) scanPairs(ctx context.Context, query string, fn func(int64, string)) error {
	rows, err := w.tx.QueryContext(ctx, w.store.dialect.SQL(query))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		fn(id, name)
	}
	return rows.Err()
}

func (w *writer) scheduleIndex(jobID int64) map[string]int64 {
	m, ok := w.schedules[jobID]
	if !ok {
		m = make(map[string]int64)
		w.schedules[jobID] = m
	}
	return m
}

func (w *writer) exec(ctx context.Context, query string, args ...any) error {
	query = w.store.dialect.SQL(query)
	if w.store.echo != nil {
		w.store.echo(query, args)
	}
	_, err := w.tx.ExecContext(ctx, query, args...)
	return err
}

func (w *writer) insert(ctx context.Context, query string, args ...any) (int64, error) {
	query = w.store.dialect.SQL(query)
	if w.store.echo != nil {
		w.store.echo(query, args)
	}
	var id int64
	err := w.tx.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

func (w *writer) apply(ctx context.Context, op reconcile.Operation) error {
	switch op.Kind {
	case reconcile.CreateJob:
		return w.createJob(ctx, op.Data)
	case reconcile.UpdateJob:
		return w.updateJob(ctx, op.Data)
	case reconcile.DeleteJob:
		id, err := w.jobID(op.Job)
		if err != nil {
			return err
		}
		if err := w.exec(ctx, deleteJobQuery, id); err != nil {
			return err
		}
		delete(w.jobs, op.Job)
		return nil
	case reconcile.CreateStep:
		id, err := w.jobID(op.Job)
		if err != nil {
			return err
		}
		return w.createStep(ctx, id, op.Step)
	case reconcile.UpdateStep:
		id, err := w.stepID(op.Job, op.Step.Sequence)
		if err != nil {
			return err
		}
		return w.updateStep(ctx, id, op.Step)
	case reconcile.DeleteStep:
		id, err := w.stepID(op.Job, op.Step.Sequence)
		if err != nil {
			return err
		}
		return w.exec(ctx, deleteStepQuery, id)
	case reconcile.CreateSchedule:
		id, err := w.jobID(op.Job)
		if err != nil {
			return err
		}
		return w.createSchedule(ctx, id, op.Schedule, op.Window)
	case reconcile.UpdateSchedule:
		id, err := w.scheduleID(op.Job, op.Schedule.Name)
		if err != nil {
			return err
		}
		return w.updateSchedule(ctx, id, op.Schedule, op.Window)
	case reconcile.DeleteSchedule:
		id, err := w.scheduleID(op.Job, op.Schedule.Name)
		if err != nil {
			return err
		}
		return w.exec(ctx, deleteScheduleQuery, id)
	default:
		return fmt.Errorf("unknown operation kind %d", int(op.Kind))
	}
}

func (w *writer) jobID(name string) (int64, error) {
	id, ok := w.jobs[name]
	if !ok {
		return 0, fmt.Errorf("job %q not found", name)
	}
	return id, nil
}

func (w *writer) stepID(jobName string, sequence int) (int64, error) {
	jobID, err := w.jobID(jobName)
	if err != nil {
		return 0, err
	}
	ids := w.steps[jobID]
	if sequence < 1 || sequence > len(ids) {
		return 0, fmt.Errorf("job %q has no step %d", jobName, sequence)
	}
	return ids[sequence-1], nil
}

func (w *writer) scheduleID(jobName, name string) (int64, error) {
	jobID, err := w.jobID(jobName)
	if err != nil {
		return 0, err
	}
	id, ok := w.schedules[jobID][name]
	if !ok {
		return 0, fmt.Errorf("job %q has no schedule %q", jobName, name)
	}
	return id, nil
}

func (w *writer) classID(name string) (int64, error) {
	id, ok := w.classes[name]
	if !ok {
		return 0, shared.NewValidationError("job class", "class", fmt.Sprintf("unknown job class %q", name))
	}
	return id, nil
}

func (w *writer) createJob(ctx context.Context, j job.Job) error {
	classID, err := w.classID(j.Class)
	if err != nil {
		return err
	}
	id, err := w.insert(ctx, insertJobQuery, classID, j.Name, j.Comment, j.Host, j.Enabled)
	if err != nil {
		return err
	}
	w.jobs[j.Name] = id
	return nil
}

func (w *writer) updateJob(ctx context.Context, j job.Job) error {
	id, err := w.jobID(j.Name)
	if err != nil {
		return err
	}
	classID, err := w.classID(j.Class)
	if err != nil {
		return err
	}
	return w.exec(ctx, updateJobQuery, classID, j.Comment, j.Host, j.Enabled, id)
}

func (w *writer) stepArgs(st job.Step) []any {
	return []any{st.Name, st.Comment, st.Enabled, kindCodes[st.Kind], st.Body, st.Database, onErrorCodes[st.OnError]}
}

func (w *writer) createStep(ctx context.Context, jobID int64, st job.Step) error {
	args := append([]any{jobID}, w.stepArgs(st)...)
	column, value := "", ""
	if w.profile.Has(compat.FieldStepConnStr) {
		column, value = connStrColumn, connStrValue
		args = append(args, st.ConnStr)
	}
	return w.exec(ctx, fmt.Sprintf(insertStepQuery, column, value), args...)
}

func (w *writer) updateStep(ctx context.Context, id int64, st job.Step) error {
	args := w.stepArgs(st)
	set := ""
	if w.profile.Has(compat.FieldStepConnStr) {
		set = connStrSet
		args = append(args, st.ConnStr)
	}
	args = append(args, id)
	return w.exec(ctx, fmt.Sprintf(updateStepQuery, set), args...)
}

func (w *writer) scheduleArgs(sc job.Schedule) []any {
	return []any{
		sc.Comment, sc.Enabled,
		flagsArg(sc.Minutes, job.MinuteField),
		flagsArg(sc.Hours, job.HourField),
		flagsArg(sc.WeekDays, job.WeekDayField),
		flagsArg(sc.MonthDays, job.MonthDayField),
		flagsArg(sc.Months, job.MonthField),
	}
}

func (w *writer) createSchedule(ctx context.Context, jobID int64, sc job.Schedule, window bool) error {
	args := append([]any{jobID, sc.Name}, w.scheduleArgs(sc)...)
	columns, values := "", ""
	if window {
		columns, values = windowColumns, windowValues
		args = append(args, w.store.dialect.TimeArg(sc.Start), w.store.dialect.TimeArg(sc.End))
	}
	id, err := w.insert(ctx, fmt.Sprintf(insertScheduleQuery, columns, values), args...)
	if err != nil {
		return err
	}
	w.scheduleIndex(jobID)[sc.Name] = id
	return w.writeMoments(ctx, id, sc, false)
}

func (w *writer) updateSchedule(ctx context.Context, id int64, sc job.Schedule, window bool) error {
	args := w.scheduleArgs(sc)
	set := ""
	if window {
		set = windowSet
		args = append(args, w.store.dialect.TimeArg(sc.Start), w.store.dialect.TimeArg(sc.End))
	}
	args = append(args, id)
	if err := w.exec(ctx, fmt.Sprintf(updateScheduleQuery, set), args...); err != nil {
		return err
	}
	return w.writeMoments(ctx, id, sc, true)
}

// writeMoments replaces the exceptions and extra runs of a schedule with the
// desired ones. Tables the schema lacks are never touched.
func (w *writer) writeMoments(ctx context.Context, scheduleID int64, sc job.Schedule, replace bool) error {
	if w.profile.Has(compat.FieldScheduleExcluded) {
		if replace {
			if err := w.exec(ctx, deleteExceptionsQuery, scheduleID); err != nil {
				return err
			}
		}
		for _, m := range sc.ExcludedRuns {
			if err := w.exec(ctx, insertExceptionQuery, scheduleID, nullString(m.Date), nullString(m.Time)); err != nil {
				return err
			}
		}
	}
	if w.profile.Has(compat.FieldScheduleExtraRuns) {
		if replace {
			if err := w.exec(ctx, deleteExtraRunsQuery, scheduleID); err != nil {
				return err
			}
		}
		for _, m := range sc.ExtraRuns {
			if err := w.exec(ctx, insertExtraRunQuery, scheduleID, m.Date, m.Time); err != nil {
				return err
			}
		}
	}
	return nil
}
