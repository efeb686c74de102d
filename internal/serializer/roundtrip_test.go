package serializer

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"pgagent-yaml/internal/job"
)

// textJob puts text everywhere free text is allowed.
func textJob(text string) job.Job {
	return job.Job{
		Name:    "etl",
		Class:   job.DefaultClass,
		Enabled: true,
		Comment: text,
		Steps: []job.Step{
			{Sequence: 1, Name: "load", Kind: job.KindSQL, Enabled: true, OnError: job.OnErrorFail, Database: "postgres", Comment: text, Body: text},
		},
		Schedules: []job.Schedule{
			{
				Name:      "daily",
				Enabled:   true,
				Comment:   text,
				Minutes:   job.Only(0),
				Hours:     job.Every(),
				MonthDays: job.Every(),
				Months:    job.Every(),
				WeekDays:  job.Every(),
			},
		},
	}
}

// assertRoundTrip checks that jobs survive Encode and Decode unchanged and
// that encoding the decoded jobs yields the same bytes.
func assertRoundTrip(t *testing.T, jobs []job.Job, opts Options) {
	t.Helper()
	want := make([]job.Job, len(jobs))
	for i, j := range jobs {
		n, err := job.New(j)
		require.NoError(t, err)
		want[i] = n
	}
	job.SortByName(want)

	data, err := Encode(jobs, opts)
	require.NoError(t, err)
	got, err := Decode(data, "etl.yaml")
	require.NoError(t, err, "encoded document does not parse:\n%s", data)
	if diff := cmp.Diff(want, got, equateEmpty); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\n%s", diff, data)
	}

	again, err := Encode(got, opts)
	require.NoError(t, err)
	require.Equal(t, string(data), string(again), "encoding is not stable")
}

func TestRoundTrip_Text(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"tab indented body", "\ttab\nx"},
		{"tab indented lines", "\tSELECT 1;\n\tSELECT 2;\n"},
		{"tab only line", "BEGIN;\n\t\nCOMMIT;"},
		{"leading blank line then tab", "\n\tx"},
		{"crlf", "SELECT 1;\r\nSELECT 2;\r\n"},
		{"lone cr", "a\rb"},
		{"leading spaces", "  SELECT 1;\nSELECT 2;"},
		{"trailing spaces", "SELECT 1;  \nSELECT 2;"},
		{"trailing newlines", "SELECT 1;\n\n\n"},
		{"only newlines", "\n\n"},
		{"unicode", "-- очистка\nDELETE FROM журнал;\n"},
		{"unicode line separators", "a b\u0085c"},
		{"single tab", "\t"},
		{"looks like yaml", "key: value\n- item\n# comment"},
		{"looks like a bool", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRoundTrip(t, []job.Job{textJob(tt.text)}, Options{})
		})
	}
}

func TestRoundTrip_SubSecondWindow(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)
	end := start.Add(36 * time.Hour)
	j := textJob("window")
	j.Schedules[0].Start = &start
	j.Schedules[0].End = &end

	assertRoundTrip(t, []job.Job{j}, Options{IncludeScheduleWindow: true})
}

// fromMask selects the values of f whose bit is set. No bit means every value.
func fromMask(mask uint64, f job.Field) job.Recurrence {
	var values []int
	for i := 0; i < f.Size(); i++ {
		if mask&(1<<uint(i)) != 0 {
			values = append(values, f.Min+i)
		}
	}
	if len(values) == 0 {
		return job.Every()
	}
	return job.Only(values...)
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("VACUUM ANALYZE;", "nightly", int64(1735787045123456789), int64(3600e9), uint64(1), uint32(1<<3), uint8(0b0100010), uint32(1<<31), uint16(0), uint32(12345))
	f.Add("\ttab\nx", "\tcomment\r\n", int64(0), int64(-1), uint64(0), uint32(0), uint8(0), uint32(0), uint16(0xfff), uint32(0))
	f.Add("  lead\ntrail  \n\n", "юникод ", int64(-1e18), int64(1), uint64(1<<59), uint32(1<<23), uint8(1), uint32(1), uint16(1<<11), uint32(4294967295))
	f.Add("", "", int64(1e9), int64(0), ^uint64(0), ^uint32(0), ^uint8(0), ^uint32(0), ^uint16(0), uint32(86399*20000))

	f.Fuzz(func(t *testing.T, body, comment string, startNanos, spanNanos int64,
		minutes uint64, hours uint32, weekdays uint8, monthdays uint32, months uint16, moment uint32) {
		// the store only holds valid UTF-8 text without NUL bytes
		for _, s := range []string{body, comment} {
			if !utf8.ValidString(s) || strings.ContainsRune(s, 0) {
				t.Skip()
			}
		}

		j := textJob(body)
		j.Comment = comment
		j.Steps[0].Comment = comment

		start := time.Unix(0, startNanos).UTC()
		sc := &j.Schedules[0]
		sc.Comment = comment
		sc.Start = &start
		if spanNanos >= 0 {
			end := start.Add(time.Duration(spanNanos))
			sc.End = &end
		}
		sc.Minutes = fromMask(minutes, job.MinuteField)
		sc.Hours = fromMask(uint64(hours), job.HourField)
		sc.WeekDays = fromMask(uint64(weekdays), job.WeekDayField)
		sc.MonthDays = fromMask(uint64(monthdays), job.MonthDayField)
		sc.Months = fromMask(uint64(months), job.MonthField)

		day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(moment%20000))
		at := day.Add(time.Duration(moment/20000%86400) * time.Second)
		sc.ExcludedRuns = []job.Moment{
			{Date: at.Format("2006-01-02")},
			{Time: at.Format("15:04:05")},
		}
		sc.ExtraRuns = []job.Moment{{Date: at.Format("2006-01-02"), Time: at.Format("15:04")}}

		assertRoundTrip(t, []job.Job{j}, Options{IncludeScheduleWindow: true})
	})
}
