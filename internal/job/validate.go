package job

import (
	"fmt"

	"pgagent-yaml/internal/shared"
)

// Validate checks the job and everything it owns. The first violation is
// returned as a *shared.ValidationError naming the entity and field.
func (j Job) Validate() error {
	entity := j.entity()
	if j.Name == "" {
		return shared.NewValidationError("job", "name", "must not be empty")
	}
	if j.Class == "" {
		return shared.NewValidationError(entity, "class", "must not be empty")
	}

	sequences := make(map[int]bool, len(j.Steps))
	names := make(map[string]int, len(j.Steps))
	for _, s := range j.Steps {
		if sequences[s.Sequence] {
			return shared.NewValidationError(entity, "steps", fmt.Sprintf("duplicate step sequence %d", s.Sequence))
		}
		sequences[s.Sequence] = true
		if prev, ok := names[s.Name]; ok && s.Name != "" {
			return shared.NewValidationError(entity, "steps",
				fmt.Sprintf("steps %d and %d share the name %q", prev, s.Sequence, s.Name))
		}
		names[s.Name] = s.Sequence
		if err := s.validate(entity); err != nil {
			return err
		}
	}

	schedules := make(map[string]bool, len(j.Schedules))
	for _, s := range j.Schedules {
		if schedules[s.Name] {
			return shared.NewValidationError(entity, "schedules", fmt.Sprintf("duplicate schedule name %q", s.Name))
		}
		schedules[s.Name] = true
		if err := s.validate(entity); err != nil {
			return err
		}
	}
	return nil
}

func (j Job) entity() string {
	return fmt.Sprintf("job %q", j.Name)
}

func (s Step) validate(job string) error {
	entity := fmt.Sprintf("%s/step %d", job, s.Sequence)
	switch {
	case s.Sequence < 1:
		return shared.NewValidationError(entity, "sequence", "must be positive")
	case s.Name == "":
		return shared.NewValidationError(entity, "name", "must not be empty")
	case !s.Kind.Valid():
		return shared.NewValidationError(entity, "kind", fmt.Sprintf("unknown kind %q, want sql or batch", s.Kind))
	case !s.OnError.Valid():
		return shared.NewValidationError(entity, "on_error", fmt.Sprintf("unknown policy %q, want fail, ignore or success", s.OnError))
	}
	return nil
}

func (s Schedule) validate(job string) error {
	entity := fmt.Sprintf("%s/schedule %q", job, s.Name)
	if s.Name == "" {
		return shared.NewValidationError(job+"/schedule", "name", "must not be empty")
	}

	fields := []struct {
		r Recurrence
		f Field
	}{
		{s.Minutes, MinuteField},
		{s.Hours, HourField},
		{s.MonthDays, MonthDayField},
		{s.Months, MonthField},
		{s.WeekDays, WeekDayField},
	}
	for _, fr := range fields {
		if err := fr.r.Validate(fr.f); err != nil {
			return shared.NewValidationError(entity, fr.f.Name, err.Error())
		}
	}

	if s.Start != nil && s.End != nil && s.End.Before(*s.Start) {
		return shared.NewValidationError(entity, "end", "must not be before start")
	}
	for _, m := range s.ExcludedRuns {
		if err := m.Validate(); err != nil {
			return shared.NewValidationError(entity, "excluded_runs", err.Error())
		}
	}
	for _, m := range s.ExtraRuns {
		if err := m.Validate(); err != nil {
			return shared.NewValidationError(entity, "extra_runs", err.Error())
		}
		if !m.Full() {
			return shared.NewValidationError(entity, "extra_runs", fmt.Sprintf("%q needs both a date and a time", m.String()))
		}
	}
	return nil
}
