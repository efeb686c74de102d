package app

import (
	"context"
	"log/slog"
	"time"

	"pgagent-yaml/internal/compat"
	"pgagent-yaml/internal/config"
	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/serializer"
)

const windowHint = `Use --include-schedule-start-end for export schedules with "start", "end" fields`

// Export writes every job of the store to cfg.OutDir, one file per job.
// The store is read before the output directory is touched, so a failed
// connection never cleans it.
func (a *App) Export(ctx context.Context, cfg config.Export) error {
	store, closeStore, err := a.openStore(ctx, cfg.Connection, readOnly)
	if err != nil {
		return err
	}
	defer closeStore()

	profile, err := store.Profile(ctx)
	if err != nil {
		return err
	}
	if err := compat.CheckSupported(a.log, profile.Info, cfg.IgnoreVersion); err != nil {
		return err
	}

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		return err
	}
	a.warnSchedules(jobs, cfg.IncludeScheduleWindow)

	if err := a.files.PrepareOutDir(cfg.OutDir, cfg.Clean); err != nil {
		return err
	}
	paths, err := a.files.WriteJobs(cfg.OutDir, jobs, serializer.Options{
		IncludeScheduleWindow: cfg.IncludeScheduleWindow,
	})
	if err != nil {
		return err
	}
	a.log.Info("export finished",
		slog.Int("jobs", len(paths)),
		slog.String("dir", cfg.OutDir),
		slog.String("version", profile.Info.String()),
	)
	return nil
}

// warnSchedules reports schedules that will not fire. Without the window
// in the files such a schedule looks active after export, so the hint
// points at the flag that keeps start and end.
func (a *App) warnSchedules(jobs []job.Job, withWindow bool) {
	now := a.now()
	inactive := false
	for _, j := range jobs {
		for _, sc := range j.Schedules {
			name := j.Name + "/" + sc.Name
			if !withWindow {
				if sc.Start != nil && sc.Start.After(now) {
					a.log.Warn("schedule is inactive",
						slog.String("schedule", name),
						slog.String("start", sc.Start.Format(time.RFC3339)),
						slog.String("reason", "start > now"))
					inactive = true
				}
				if sc.End != nil && sc.End.Before(now) {
					a.log.Warn("schedule is inactive",
						slog.String("schedule", name),
						slog.String("end", sc.End.Format(time.RFC3339)),
						slog.String("reason", "end < now"))
					inactive = true
				}
			}
			if !sc.Enabled || !j.Enabled {
				continue
			}
			if next, ok := sc.NextRun(now); ok && next.IsZero() && (sc.End == nil || !sc.End.Before(now)) {
				a.log.Warn("schedule never fires", slog.String("schedule", name))
			}
		}
	}
	if inactive {
		a.log.Warn("hint: " + windowHint)
	}
}
