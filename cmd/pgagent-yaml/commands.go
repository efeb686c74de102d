package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pgagent-yaml/internal/app"
	"pgagent-yaml/internal/config"
	"pgagent-yaml/internal/platform/logger"
	"pgagent-yaml/internal/shared"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgagent-yaml",
		Short: "Export pgAgent jobs to YAML files and sync them back",
		Long: `pgagent-yaml keeps pgAgent jobs in version control.

  export  writes every job of the store to <out-dir>/<job>.yaml
  sync    makes the store match a directory of job files, or one file

Connection parameters follow psql: -h, -p, -U, -W, -d and the PGHOST,
PGPORT, PGUSER, PGPASSWORD, PGDATABASE environment variables. --sqlite
selects a local store file instead of PostgreSQL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("log-level", "info", "console log level: debug, info, warn, error")
	root.PersistentFlags().String("log-file", "", "also write JSON logs to this file")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return shared.MarkKind(err, shared.KindUsage)
	})

	root.AddCommand(newExportCmd(), newSyncCmd(), newVersionCmd())
	return root
}

func connectionFlags(fs *pflag.FlagSet) {
	fs.StringP("host", "h", "", "database server host or socket directory (default localhost)")
	fs.IntP("port", "p", 0, "database server port (default 5432)")
	fs.StringP("user", "U", "", "database user name")
	fs.StringP("password", "W", "", "database password")
	fs.StringP("dbname", "d", "", "database name")
	fs.String("sqlite", "", "use the local store in this SQLite file instead of PostgreSQL")
	fs.Bool("ignore-version", false, "continue on an unsupported store version")
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every job to <out-dir>/<job>.yaml",
		Long: `Export reads all jobs with their steps and schedules and writes one YAML
file per job. A non-empty output directory is refused unless --clean is given
or PGAGENT_YAML_AUTOCLEAN=true.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadExport(cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log)
			defer logger.Close(log)
			return app.New(log, app.WithStreams(cmd.InOrStdin(), cmd.OutOrStdout())).Export(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	connectionFlags(fs)
	fs.String("out-dir", "", "directory for job files (required)")
	fs.Bool("clean", false, "remove the content of a non-empty out-dir")
	fs.Bool("include-schedule-start-end", false, "write schedule start and end")
	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Make the store match the job files",
		Long: `Sync compares the job files with the store, prints the difference and,
after confirmation, applies it in one transaction.

With a directory as --source every job in the store is managed: jobs
without a file are deleted. With a single file only the jobs it defines
are touched. Schedule start and end are compared only when the files
spell them out.

Concurrent syncs against one store are not coordinated.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadSync(cmd.Flags())
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log)
			defer logger.Close(log)
			return app.New(log, app.WithStreams(cmd.InOrStdin(), cmd.OutOrStdout())).Sync(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	connectionFlags(fs)
	fs.String("source", "", "job file or directory of job files (required)")
	fs.Bool("dry-run", false, "show the difference without applying it")
	fs.BoolP("yes", "y", false, "apply without asking")
	fs.Bool("echo-queries", false, "print every statement before it runs")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pgagent-yaml", version)
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return shared.MarkKind(err, shared.KindUsage)
	}
	return nil
}

func newLogger(c config.Log) *slog.Logger {
	return logger.New(logger.Options{
		Level:     c.Level,
		FileLevel: c.FileLevel,
		File:      c.File,
		App:       "pgagent-yaml",
	})
}
