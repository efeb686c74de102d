package compat

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

// Field is an optional part of the entity model that only some schema
// versions can store.
type Field string

const (
	FieldStepConnStr       Field = "connection_string"
	FieldScheduleExtraRuns Field = "extra_runs"
	FieldScheduleExcluded  Field = "excluded_runs"
)

// Rule states that a field is present for a flavor within a version range.
// An empty Constraint matches every version, including unparsable ones.
type Rule struct {
	Flavor     Flavor
	Constraint string
	Fields     []Field
}

// Rules is the single table of version-dependent fields. pgAgent added
// jstconnstr in 3.4 and has no extra-runs table; the local store gained the
// connection string with schema 4.0 and extra runs with 4.2.
var Rules = []Rule{
	{Flavor: FlavorPgAgent, Constraint: "", Fields: []Field{FieldScheduleExcluded}},
	{Flavor: FlavorPgAgent, Constraint: ">= 3.4", Fields: []Field{FieldStepConnStr}},
	{Flavor: FlavorLocal, Constraint: "", Fields: []Field{FieldScheduleExcluded}},
	{Flavor: FlavorLocal, Constraint: ">= 4.0", Fields: []Field{FieldStepConnStr}},
	{Flavor: FlavorLocal, Constraint: ">= 4.2", Fields: []Field{FieldScheduleExtraRuns}},
}

// Profile is the set of optional fields a detected schema can hold.
type Profile struct {
	Info   VersionInfo
	fields map[Field]bool
}

// ProfileFor evaluates Rules against info.
func ProfileFor(info VersionInfo) Profile {
	return profileFrom(info, Rules)
}

func profileFrom(info VersionInfo, rules []Rule) Profile {
	p := Profile{Info: info, fields: make(map[Field]bool)}
	for _, r := range rules {
		if r.Flavor != info.Flavor || !matches(r.Constraint, info.Version) {
			continue
		}
		for _, f := range r.Fields {
			p.fields[f] = true
		}
	}
	return p
}

func matches(constraint string, v *semver.Version) bool {
	if constraint == "" {
		return true
	}
	if v == nil {
		return false
	}
	return mustConstraint(constraint).Check(v)
}

// Has reports whether the schema stores f.
func (p Profile) Has(f Field) bool {
	return p.fields[f]
}

// Dropped is a non-empty value Project had to clear.
type Dropped struct {
	Entity string
	Field  Field
}

func (d Dropped) String() string {
	return fmt.Sprintf("%s: %s", d.Entity, d.Field)
}

// Project returns copies of jobs with every field the profile lacks cleared,
// together with the non-empty values that were lost.
func (p Profile) Project(jobs []job.Job) ([]job.Job, []Dropped) {
	out := make([]job.Job, len(jobs))
	var dropped []Dropped
	for i, j := range jobs {
		c := j.Clone()
		for k := range c.Steps {
			s := &c.Steps[k]
			if !p.Has(FieldStepConnStr) && s.ConnStr != "" {
				dropped = append(dropped, Dropped{Entity: fmt.Sprintf("job %q/step %d", c.Name, s.Sequence), Field: FieldStepConnStr})
				s.ConnStr = ""
			}
		}
		for k := range c.Schedules {
			s := &c.Schedules[k]
			entity := fmt.Sprintf("job %q/schedule %q", c.Name, s.Name)
			if !p.Has(FieldScheduleExcluded) && len(s.ExcludedRuns) > 0 {
				dropped = append(dropped, Dropped{Entity: entity, Field: FieldScheduleExcluded})
				s.ExcludedRuns = nil
			}
			if !p.Has(FieldScheduleExtraRuns) && len(s.ExtraRuns) > 0 {
				dropped = append(dropped, Dropped{Entity: entity, Field: FieldScheduleExtraRuns})
				s.ExtraRuns = nil
			}
		}
		out[i] = c
	}
	return out, dropped
}

// DroppedError reports lost values as a validation failure, used when the
// caller did not opt into best-effort mode.
func DroppedError(info VersionInfo, dropped []Dropped) error {
	if len(dropped) == 0 {
		return nil
	}
	parts := make([]string, len(dropped))
	for i, d := range dropped {
		parts[i] = d.String()
	}
	return shared.NewValidationError(dropped[0].Entity, string(dropped[0].Field),
		fmt.Sprintf("not supported by %s (%s), use --ignore-version to drop silently", info, strings.Join(parts, "; ")))
}
