// Package config resolves command settings from flags, the environment and an
// optional .env file. Explicit flags win over the environment, the environment
// wins over flag defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pgagent-yaml/internal/platform/pg"
	"pgagent-yaml/internal/shared"
)

// Connection selects the store: PostgreSQL by libpq-style parameters, or the
// local SQLite store when SQLite is set.
type Connection struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"dbname"`
	SQLite   string `mapstructure:"sqlite"`
}

// Local reports whether the local SQLite store is selected.
func (c Connection) Local() bool {
	return c.SQLite != ""
}

// DSN builds the PostgreSQL connection URL.
func (c Connection) DSN() string {
	dsn := pg.DefaultDSNConfig()
	if c.Host != "" {
		dsn.Host = c.Host
	}
	if c.Port != 0 {
		dsn.Port = c.Port
	}
	dsn.User = c.User
	dsn.Password = c.Password
	dsn.Database = c.Database
	return pg.BuildDSN(dsn)
}

// Log holds logger settings.
type Log struct {
	Level     string `mapstructure:"log-level" validate:"required,oneof=debug info warn error"`
	FileLevel string `mapstructure:"log-file-level" validate:"required,oneof=debug info warn error"`
	File      string `mapstructure:"log-file"`
}

// Export holds settings of the export command.
type Export struct {
	Connection            `mapstructure:",squash"`
	Log                   `mapstructure:",squash"`
	OutDir                string `mapstructure:"out-dir" validate:"required"`
	Clean                 bool   `mapstructure:"clean"`
	IgnoreVersion         bool   `mapstructure:"ignore-version"`
	IncludeScheduleWindow bool   `mapstructure:"include-schedule-start-end"`
}

// Sync holds settings of the sync command.
type Sync struct {
	Connection    `mapstructure:",squash"`
	Log           `mapstructure:",squash"`
	Source        string `mapstructure:"source" validate:"required"`
	IgnoreVersion bool   `mapstructure:"ignore-version"`
	DryRun        bool   `mapstructure:"dry-run"`
	Yes           bool   `mapstructure:"yes"`
	EchoQueries   bool   `mapstructure:"echo-queries"`
}

// envBindings maps settings to environment variables.
var envBindings = map[string]string{
	"host":           "PGHOST",
	"port":           "PGPORT",
	"user":           "PGUSER",
	"password":       "PGPASSWORD",
	"dbname":         "PGDATABASE",
	"clean":          "PGAGENT_YAML_AUTOCLEAN",
	"log-level":      "LOG_LEVEL",
	"log-file":       "LOG_FILE",
	"log-file-level": "LOG_FILE_LEVEL",
}

var validate = validator.New()

// Bind creates a viper instance over flags and the environment. A .env file
// in the working directory is loaded first and never overrides variables
// already set.
func Bind(flags *pflag.FlagSet) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file-level", "debug")
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadExport resolves export settings.
func LoadExport(flags *pflag.FlagSet) (Export, error) {
	var c Export
	if err := load(flags, &c); err != nil {
		return Export{}, err
	}
	return c, nil
}

// LoadSync resolves sync settings.
func LoadSync(flags *pflag.FlagSet) (Sync, error) {
	var c Sync
	if err := load(flags, &c); err != nil {
		return Sync{}, err
	}
	return c, nil
}

func load(flags *pflag.FlagSet, out any) error {
	v, err := Bind(flags)
	if err != nil {
		return shared.MarkKind(err, shared.KindUsage)
	}
	if err := v.Unmarshal(out); err != nil {
		return shared.MarkKind(fmt.Errorf("read settings: %w", err), shared.KindUsage)
	}
	lowerLevels(out)
	if err := validate.Struct(out); err != nil {
		return shared.MarkKind(describe(err), shared.KindUsage)
	}
	return nil
}

func lowerLevels(out any) {
	var l *Log
	switch c := out.(type) {
	case *Export:
		l = &c.Log
	case *Sync:
		l = &c.Log
	}
	if l != nil {
		l.Level = strings.ToLower(l.Level)
		l.FileLevel = strings.ToLower(l.FileLevel)
	}
}

// describe turns validator errors into messages naming the flag.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		flag := flagNames[fe.Field()]
		if flag == "" {
			flag = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("--%s is required", flag))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("--%s must be one of: %s", flag, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("--%s is invalid: %v", flag, fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

var flagNames = map[string]string{
	"OutDir":    "out-dir",
	"Source":    "source",
	"Port":      "port",
	"Level":     "log-level",
	"FileLevel": "log-file-level",
}
