package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pgagent-yaml/internal/adapter/pgagent"
	"pgagent-yaml/internal/config"
	"pgagent-yaml/internal/reconcile"
	"pgagent-yaml/internal/serializer"
)

// Sync makes the store match the job files under cfg.Source. The plan is
// printed as a diff and applied after confirmation, in one transaction.
func (a *App) Sync(ctx context.Context, cfg config.Sync) error {
	src, err := a.files.Load(cfg.Source)
	if err != nil {
		return err
	}
	a.log.Debug("job files loaded",
		slog.Int("files", len(src.Files)),
		slog.Int("jobs", len(src.Jobs)),
		slog.Bool("single_file", src.SingleFile),
	)

	render := newPlanRenderer(a.out)
	var opts []pgagent.Option
	if cfg.EchoQueries {
		opts = append(opts, pgagent.WithEcho(render.echo))
	}
	store, closeStore, err := a.openStore(ctx, cfg.Connection, readWrite, opts...)
	if err != nil {
		return err
	}
	defer closeStore()

	r := reconcile.New(store, a.log)
	plan, err := r.Prepare(ctx, src.Jobs, reconcile.Options{
		Scope:         src.Managed(),
		Windows:       src.Windows,
		DryRun:        cfg.DryRun,
		IgnoreVersion: cfg.IgnoreVersion,
	})
	if err != nil {
		return err
	}

	if plan.Empty() {
		fmt.Fprintln(a.out, "Nothing to do: all jobs are up to date")
		return nil
	}
	if err := render.render(plan, serializer.Options{IncludeScheduleWindow: src.HasWindow()}); err != nil {
		return err
	}

	changed := len(plan.Jobs())
	if cfg.DryRun {
		fmt.Fprintf(a.out, "Dry run: %d jobs would change, nothing applied\n", changed)
		return nil
	}
	if !cfg.Yes && !a.confirm(fmt.Sprintf("Are you sure you want to change %d jobs? (y/n): ", changed)) {
		a.log.Info("sync declined", slog.Int("jobs", changed))
		return nil
	}

	applied, err := r.Apply(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Changed %d jobs (%d operations)\n", changed, applied)
	return nil
}

// confirm asks a yes/no question. Anything but "y" is a no, including end
// of input.
func (a *App) confirm(question string) bool {
	fmt.Fprint(a.out, question)
	answer, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return strings.TrimSpace(answer) == "y"
}
