package serializer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

var equateEmpty = cmpopts.EquateEmpty()

func fixtureJobs() []job.Job {
	start := time.Date(2025, 1, 1, 0, 0, 0, 123456000, time.UTC)
	return []job.Job{
		{
			Name:    "nightly_vacuum",
			Class:   job.DefaultClass,
			Enabled: true,
			Comment: "vacuum and reindex\nevery night",
			Steps: []job.Step{
				{Sequence: 1, Name: "vacuum", Kind: job.KindSQL, Enabled: true, OnError: job.OnErrorFail, Database: "postgres", Body: "vacuum analyze;"},
				{Sequence: 2, Name: "reindex", Kind: job.KindSQL, Enabled: false, OnError: job.OnErrorIgnore, ConnStr: "host=replica dbname=postgres", Body: "reindex database postgres;\nselect 1;\n"},
			},
			Schedules: []job.Schedule{
				{
					Name:         "nightly",
					Enabled:      true,
					Minutes:      job.Only(0, 30),
					Hours:        job.Only(3),
					MonthDays:    job.Every(),
					Months:       job.Every(),
					WeekDays:     job.Only(1, 5),
					Start:        &start,
					ExcludedRuns: []job.Moment{{Date: "2025-12-31"}, {Time: "03:30"}},
				},
				{
					Name:      "month_end",
					Enabled:   false,
					Comment:   "true",
					Minutes:   job.Only(15),
					Hours:     job.Only(23),
					MonthDays: job.Only(1, job.LastDay),
					Months:    job.Every(),
					WeekDays:  job.Every(),
					ExtraRuns: []job.Moment{{Date: "2025-06-01", Time: "12:00"}},
				},
			},
		},
		{
			Name:    "archive",
			Class:   "Data Export",
			Enabled: false,
			Host:    "agent-01",
			Steps: []job.Step{
				{Sequence: 1, Name: "dump", Kind: job.KindBatch, Enabled: true, OnError: job.OnErrorSuccess, Body: "pg_dump -Fc app > /backup/app.dump"},
			},
		},
	}
}

func normalized(t *testing.T, jobs []job.Job) []job.Job {
	t.Helper()
	out := make([]job.Job, len(jobs))
	for i, j := range jobs {
		n, err := job.New(j)
		require.NoError(t, err)
		out[i] = n
	}
	job.SortByName(out)
	return out
}

func withoutWindows(jobs []job.Job) []job.Job {
	for i := range jobs {
		for k := range jobs[i].Schedules {
			jobs[i].Schedules[k].Start, jobs[i].Schedules[k].End = nil, nil
		}
	}
	return jobs
}

func TestRoundTrip_WithWindow(t *testing.T) {
	data, err := Encode(fixtureJobs(), Options{IncludeScheduleWindow: true})
	require.NoError(t, err)

	doc, err := DecodeDocument(data, "all.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-01-01T00:00:00.123456Z")
	assert.True(t, doc.Windows.Has("nightly_vacuum", "nightly"))
	assert.True(t, doc.Windows.Has("nightly_vacuum", "month_end"), "a null window is still spelled out")

	if diff := cmp.Diff(normalized(t, fixtureJobs()), doc.Jobs, equateEmpty); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\n%s", diff, data)
	}
}

func TestRoundTrip_WithoutWindow(t *testing.T) {
	data, err := Encode(fixtureJobs(), Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "start:")
	assert.NotContains(t, string(data), "end:")

	doc, err := DecodeDocument(data, "all.yaml")
	require.NoError(t, err)
	assert.False(t, doc.Windows.Any())

	want := withoutWindows(normalized(t, fixtureJobs()))
	if diff := cmp.Diff(want, doc.Jobs, equateEmpty); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	jobs := fixtureJobs()
	first, err := Encode(jobs, Options{IncludeScheduleWindow: true})
	require.NoError(t, err)

	reversed := fixtureJobs()
	reversed[0], reversed[1] = reversed[1], reversed[0]
	sch := reversed[1].Schedules
	sch[0], sch[1] = sch[1], sch[0]
	reversed[1].Schedules[1].Minutes = job.Only(30, 0)

	second, err := Encode(reversed, Options{IncludeScheduleWindow: true})
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	// encoding must not reorder the caller's slices
	assert.Equal(t, "nightly_vacuum", reversed[1].Name)
	assert.Equal(t, "month_end", reversed[1].Schedules[0].Name)
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(fixtureJobs(), Options{})
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "archive:\n"), out)
	assert.Less(t, strings.Index(out, "archive:"), strings.Index(out, "nightly_vacuum:"))
	assert.Less(t, strings.Index(out, "name: month_end"), strings.Index(out, "name: nightly\n"))
	assert.Contains(t, out, "hours: '*'")
	assert.Contains(t, out, "minutes: [0, 30]")
	assert.Contains(t, out, "weekdays: [monday, friday]")
	assert.Contains(t, out, "monthdays: [1, last]")
	assert.Contains(t, out, "comment: |-")
	assert.Contains(t, out, "host: \"\"")
	assert.Contains(t, out, "comment: \"true\"")
	assert.NotContains(t, out, "created")
}

func TestEncodeJob_SingleTopLevelKey(t *testing.T) {
	data, err := EncodeJob(fixtureJobs()[1], Options{})
	require.NoError(t, err)

	jobs, err := Decode(data, "archive.yaml")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "archive", jobs[0].Name)
	assert.Equal(t, "agent-01", jobs[0].Host)
}

func TestDecode_Defaults(t *testing.T) {
	src := `
backup:
  steps:
    - name: dump
      body: select 1
  schedules:
    - name: hourly
      minutes: 0
`
	jobs, err := Decode([]byte(src), "backup.yaml")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	j := jobs[0]
	assert.Equal(t, job.DefaultClass, j.Class)
	assert.True(t, j.Enabled)
	assert.Empty(t, j.Host)

	require.Len(t, j.Steps, 1)
	s := j.Steps[0]
	assert.Equal(t, 1, s.Sequence)
	assert.Equal(t, job.KindSQL, s.Kind)
	assert.Equal(t, job.OnErrorFail, s.OnError)
	assert.True(t, s.Enabled)

	require.Len(t, j.Schedules, 1)
	sc := j.Schedules[0]
	assert.True(t, sc.Enabled)
	assert.Equal(t, job.Only(0), sc.Minutes)
	assert.True(t, sc.Hours.Any)
	assert.True(t, sc.WeekDays.Any)
	assert.Nil(t, sc.Start)
	assert.Empty(t, sc.ExcludedRuns)
}

func TestDecode_RenumbersSequenceGaps(t *testing.T) {
	src := `
etl:
  steps:
    - sequence: 30
      name: load
    - sequence: 10
      name: extract
    - sequence: 20
      name: transform
`
	jobs, err := Decode([]byte(src), "etl.yaml")
	require.NoError(t, err)
	require.Len(t, jobs[0].Steps, 3)
	for i, name := range []string{"extract", "transform", "load"} {
		assert.Equal(t, i+1, jobs[0].Steps[i].Sequence)
		assert.Equal(t, name, jobs[0].Steps[i].Name)
	}
}

func TestDecode_NullWindowCountsAsWindow(t *testing.T) {
	src := `
etl:
  schedules:
    - name: daily
      start: null
      end: 2030-01-01T00:00:00Z
`
	doc, err := DecodeDocument([]byte(src), "etl.yaml")
	require.NoError(t, err)
	assert.True(t, doc.Windows.Has("etl", "daily"))
	sc := doc.Jobs[0].Schedules[0]
	assert.Nil(t, sc.Start)
	require.NotNil(t, sc.End)
	assert.True(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*sc.End))
}

func TestDecode_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		line   int
		field  string
		reason string
	}{
		{
			name:   "empty document",
			src:    "",
			reason: "document is empty",
		},
		{
			name:   "top level list",
			src:    "- a\n- b\n",
			line:   1,
			reason: "expected a mapping of job name to job",
		},
		{
			name:   "unknown job key",
			src:    "etl:\n  enabled: true\n  owner: bob\n",
			line:   3,
			field:  "etl.owner",
			reason: "unknown key",
		},
		{
			name:   "duplicate key",
			src:    "etl:\n  enabled: true\n  enabled: false\n",
			line:   3,
			field:  "etl.enabled",
			reason: "duplicate key",
		},
		{
			name:   "wrong type",
			src:    "etl:\n  enabled: yes please\n",
			line:   2,
			field:  "etl.enabled",
			reason: "expected true or false",
		},
		{
			name:   "empty recurrence set",
			src:    "etl:\n  schedules:\n    - name: daily\n      hours: []\n",
			line:   4,
			field:  "etl.schedules[0].hours",
			reason: "empty set, use '*' for every value",
		},
		{
			name:   "null recurrence",
			src:    "etl:\n  schedules:\n    - name: daily\n      hours: ~\n",
			line:   4,
			field:  "etl.schedules[0].hours",
			reason: "empty value, use '*' for every value",
		},
		{
			name:  "bad weekday",
			src:   "etl:\n  schedules:\n    - name: daily\n      weekdays: [monday, someday]\n",
			line:  4,
			field: "etl.schedules[0].weekdays",
		},
		{
			name:  "bad step kind",
			src:   "etl:\n  steps:\n    - name: a\n      kind: python\n",
			line:  4,
			field: "etl.steps[0].kind",
		},
		{
			name:  "bad moment",
			src:   "etl:\n  schedules:\n    - name: daily\n      excluded_runs:\n        - someday\n",
			line:  5,
			field: "etl.schedules[0].excluded_runs[0]",
		},
		{
			name: "syntax error",
			src:  "etl:\n  enabled: true\n   steps: []\n",
			line: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), "etl.yaml")
			require.Error(t, err)

			var pe *shared.ParseError
			require.True(t, errors.As(err, &pe), "got %T: %v", err, err)
			assert.Equal(t, "etl.yaml", pe.Source)
			assert.Equal(t, tt.line, pe.Line)
			if tt.field != "" {
				assert.Equal(t, tt.field, pe.Field)
			}
			if tt.reason != "" {
				assert.Equal(t, tt.reason, pe.Reason)
			}
			assert.Equal(t, shared.KindParse, shared.KindOf(err))
			assert.Equal(t, shared.ExitParse, shared.ExitCode(err))
		})
	}
}

func TestDecode_ValidationErrorCarriesLocation(t *testing.T) {
	src := `
first:
  enabled: true
second:
  steps:
    - sequence: 1
      name: a
    - sequence: 1
      name: b
`
	_, err := Decode([]byte(src), "jobs.yaml")
	require.Error(t, err)

	var pe *shared.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Line)
	assert.Equal(t, "second", pe.Field)

	var ve *shared.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "steps", ve.Field)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, err.Error(), "jobs.yaml:4:1: second: invalid job \"second\": steps: duplicate step sequence 1")
}
