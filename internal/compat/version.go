// Package compat isolates store schema differences. A store reports its
// schema version; the package decides whether that version is supported and
// which optional fields the schema can hold.
package compat

import (
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"pgagent-yaml/internal/shared"
)

// Flavor identifies a store implementation.
type Flavor string

const (
	// FlavorPgAgent is the pgagent extension in PostgreSQL.
	FlavorPgAgent Flavor = "pgagent"
	// FlavorLocal is the SQLite file store with the same table layout.
	FlavorLocal Flavor = "local"
)

// VersionInfo is a detected store schema version. Version is nil when Raw
// could not be parsed.
type VersionInfo struct {
	Flavor  Flavor
	Raw     string
	Version *semver.Version
}

// ParseVersion builds a VersionInfo from the raw version string the store
// reports. Unparsable strings are kept in Raw with a nil Version.
func ParseVersion(flavor Flavor, raw string) VersionInfo {
	info := VersionInfo{Flavor: flavor, Raw: raw}
	if v, err := semver.NewVersion(raw); err == nil {
		info.Version = v
	}
	return info
}

func (v VersionInfo) String() string {
	raw := v.Raw
	if raw == "" {
		raw = "unknown"
	}
	return fmt.Sprintf("%s %s", v.Flavor, raw)
}

var supported = map[Flavor]string{
	FlavorPgAgent: ">= 3.4, < 4.3",
	FlavorLocal:   ">= 3.4",
}

// Supported returns nil when info is inside the known-supported set and an
// *shared.UnsupportedVersionError otherwise.
func Supported(info VersionInfo) error {
	rng, ok := supported[info.Flavor]
	if !ok {
		return &shared.UnsupportedVersionError{Flavor: string(info.Flavor), Version: rawOrUnknown(info), Supported: "none"}
	}
	if info.Version == nil || !mustConstraint(rng).Check(info.Version) {
		return &shared.UnsupportedVersionError{Flavor: string(info.Flavor), Version: rawOrUnknown(info), Supported: rng}
	}
	return nil
}

// CheckSupported fails on an unsupported version unless ignoreVersion is
// set, in which case it only logs a warning and the caller continues in
// best-effort mode.
func CheckSupported(log *slog.Logger, info VersionInfo, ignoreVersion bool) error {
	err := Supported(info)
	if err == nil {
		return nil
	}
	if !ignoreVersion {
		return err
	}
	log.Warn("unsupported store version, continuing in best-effort mode",
		slog.String("flavor", string(info.Flavor)),
		slog.String("version", rawOrUnknown(info)),
	)
	return nil
}

func rawOrUnknown(info VersionInfo) string {
	if info.Raw == "" {
		return "unknown"
	}
	return info.Raw
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("compat: bad constraint %q: %v", s, err))
	}
	return c
}
