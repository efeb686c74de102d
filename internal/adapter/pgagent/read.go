package pgagent

import (
	"context"
	"database/sql"
	"fmt"

	"pgagent-yaml/internal/compat"
	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

// ListJobs reads every job with its steps and schedules inside one read
// transaction. Jobs come back normalized and sorted by name.
func (s *Store) ListJobs(ctx context.Context) ([]job.Job, error) {
	profile, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []job.Job
	err = s.runner.WithinReadTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		snap, err := s.readSnapshot(ctx, tx, profile)
		if err != nil {
			return err
		}
		jobs = snap.jobs()
		return nil
	})
	if err != nil {
		if shared.IsValidation(err) {
			return nil, err
		}
		return nil, &shared.StoreError{Op: "list jobs", Index: -1, Err: err}
	}
	return jobs, nil
}

// snapshot is the store state keyed by row id.
type snapshot struct {
	order     []int64
	byID      map[int64]*job.Job
	schedules map[int64]*scheduleRow
}

type scheduleRow struct {
	jobID    int64
	schedule job.Schedule
}

func (s *Store) readSnapshot(ctx context.Context, tx *sql.Tx, profile compat.Profile) (*snapshot, error) {
	snap := &snapshot{byID: make(map[int64]*job.Job), schedules: make(map[int64]*scheduleRow)}

	if err := s.readJobs(ctx, tx, snap); err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	if err := s.readSteps(ctx, tx, snap, profile.Has(compat.FieldStepConnStr)); err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	if err := s.readSchedules(ctx, tx, snap); err != nil {
		return nil, fmt.Errorf("read schedules: %w", err)
	}
	if profile.Has(compat.FieldScheduleExcluded) {
		err := s.readMoments(ctx, tx, selectExceptionsQuery, snap, func(sc *job.Schedule, m job.Moment) {
			sc.ExcludedRuns = append(sc.ExcludedRuns, m)
		})
		if err != nil {
			return nil, fmt.Errorf("read exceptions: %w", err)
		}
	}
	if profile.Has(compat.FieldScheduleExtraRuns) {
		err := s.readMoments(ctx, tx, selectExtraRunsQuery, snap, func(sc *job.Schedule, m job.Moment) {
			sc.ExtraRuns = append(sc.ExtraRuns, m)
		})
		if err != nil {
			return nil, fmt.Errorf("read extra runs: %w", err)
		}
	}
	return snap, nil
}

func (s *Store) readJobs(ctx context.Context, tx *sql.Tx, snap *snapshot) error {
	rows, err := tx.QueryContext(ctx, s.dialect.SQL(selectJobsQuery))
	if err != nil {
		return err
	}
	defer rows.Close()

	names := make(map[string]int64)
	for rows.Next() {
		var (
			id               int64
			j                job.Job
			created, changed nullTime
		)
		if err := rows.Scan(&id, &j.Name, &j.Class, &j.Enabled, &j.Host, &j.Comment, &created, &changed); err != nil {
			return err
		}
		if prev, ok := names[j.Name]; ok {
			return shared.NewValidationError(fmt.Sprintf("job %q", j.Name), "name",
				fmt.Sprintf("defined twice in the store (jobid %d and %d)", prev, id))
		}
		names[j.Name] = id
		j.Created, j.Changed = created.Time, changed.Time
		snap.order = append(snap.order, id)
		snap.byID[id] = &j
	}
	return rows.Err()
}

func (s *Store) readSteps(ctx context.Context, tx *sql.Tx, snap *snapshot, withConnStr bool) error {
	connStr := connStrSelectNone
	if withConnStr {
		connStr = connStrSelect
	}
	rows, err := tx.QueryContext(ctx, s.dialect.SQL(fmt.Sprintf(selectStepsQuery, connStr)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, jobID     int64
			st            job.Step
			kind, onError string
		)
		if err := rows.Scan(&id, &jobID, &st.Name, &st.Comment, &st.Enabled,
			&kind, &st.Body, &st.Database, &onError, &st.ConnStr); err != nil {
			return err
		}
		if st.Kind, err = kindFromCode(kind); err != nil {
			return fmt.Errorf("step %d: %w", id, err)
		}
		if st.OnError, err = onErrorFromCode(onError); err != nil {
			return fmt.Errorf("step %d: %w", id, err)
		}
		j, ok := snap.byID[jobID]
		if !ok {
			continue
		}
		st.Sequence = len(j.Steps) + 1
		j.Steps = append(j.Steps, st)
	}
	return rows.Err()
}

func (s *Store) readSchedules(ctx context.Context, tx *sql.Tx, snap *snapshot) error {
	rows, err := tx.QueryContext(ctx, s.dialect.SQL(selectSchedulesQuery))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, jobID                                  int64
			sc                                         job.Schedule
			start, end                                 nullTime
			minutes, hours, weekdays, monthdays, months string
		)
		if err := rows.Scan(&id, &jobID, &sc.Name, &sc.Comment, &sc.Enabled, &start, &end,
			&minutes, &hours, &weekdays, &monthdays, &months); err != nil {
			return err
		}
		sc.Start, sc.End = start.ptr(), end.ptr()

		fields := []struct {
			dst     *job.Recurrence
			f       job.Field
			literal string
		}{
			{&sc.Minutes, job.MinuteField, minutes},
			{&sc.Hours, job.HourField, hours},
			{&sc.WeekDays, job.WeekDayField, weekdays},
			{&sc.MonthDays, job.MonthDayField, monthdays},
			{&sc.Months, job.MonthField, months},
		}
		for _, fl := range fields {
			if *fl.dst, err = recurrenceFromFlags(fl.f, fl.literal); err != nil {
				return fmt.Errorf("schedule %d: %w", id, err)
			}
		}
		snap.schedules[id] = &scheduleRow{jobID: jobID, schedule: sc}
	}
	return rows.Err()
}

func (s *Store) readMoments(ctx context.Context, tx *sql.Tx, query string, snap *snapshot, add func(*job.Schedule, job.Moment)) error {
	rows, err := tx.QueryContext(ctx, s.dialect.SQL(query))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scheduleID int64
			date, tm   sql.NullString
		)
		if err := rows.Scan(&scheduleID, &date, &tm); err != nil {
			return err
		}
		row, ok := snap.schedules[scheduleID]
		if !ok {
			continue
		}
		add(&row.schedule, job.Moment{Date: date.String, Time: tm.String})
	}
	return rows.Err()
}

// jobs assembles normalized jobs in name order.
func (snap *snapshot) jobs() []job.Job {
	for _, row := range snap.schedules {
		if j, ok := snap.byID[row.jobID]; ok {
			j.Schedules = append(j.Schedules, row.schedule)
		}
	}
	out := make([]job.Job, 0, len(snap.order))
	for _, id := range snap.order {
		j := snap.byID[id]
		j.Normalize()
		out = append(out, *j)
	}
	job.SortByName(out)
	return out
}
