// Package serializer converts jobs to and from their YAML text form.
//
// A document is a mapping of job name to job body. Output is canonical:
// jobs are sorted by name, steps by sequence, schedules by name, and every
// field is written in a fixed order, so that encoding the same jobs always
// yields the same bytes and version-control diffs stay minimal.
package serializer

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

// Options control optional parts of the output.
type Options struct {
	// IncludeScheduleWindow writes schedule start/end. They are left out by
	// default because a window that already passed makes a schedule inactive
	// without any visible change in the file.
	IncludeScheduleWindow bool
}

// Sub-second precision is kept: pgAgent fills start with now().
const timestampLayout = time.RFC3339Nano

// Encode writes all jobs into one document.
func Encode(jobs []job.Job, opts Options) ([]byte, error) {
	sorted := make([]job.Job, len(jobs))
	for i, j := range jobs {
		sorted[i] = j.Clone()
		sorted[i].Normalize()
	}
	job.SortByName(sorted)

	root := mapping()
	for _, j := range sorted {
		root.Content = append(root.Content, str(j.Name), jobNode(j, opts))
	}
	return render(root)
}

// EncodeJob writes a single job document, the content of one job file.
func EncodeJob(j job.Job, opts Options) ([]byte, error) {
	return Encode([]job.Job{j}, opts)
}

func render(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	if err := enc.Encode(doc); err != nil {
		return nil, shared.MarkKind(shared.Wrap(err, "encode yaml"), shared.KindInternal)
	}
	if err := enc.Close(); err != nil {
		return nil, shared.MarkKind(shared.Wrap(err, "encode yaml"), shared.KindInternal)
	}
	return buf.Bytes(), nil
}

func jobNode(j job.Job, opts Options) *yaml.Node {
	n := mapping()
	add(n, keyClass, str(j.Class))
	add(n, keyEnabled, boolean(j.Enabled))
	add(n, keyHost, str(j.Host))
	add(n, keyComment, str(j.Comment))

	steps := sequence()
	for _, s := range j.Steps {
		steps.Content = append(steps.Content, stepNode(s))
	}
	add(n, keySteps, steps)

	schedules := sequence()
	for _, s := range j.Schedules {
		schedules.Content = append(schedules.Content, scheduleNode(s, opts))
	}
	add(n, keySchedules, schedules)
	return n
}

func stepNode(s job.Step) *yaml.Node {
	n := mapping()
	add(n, keySequence, integer(s.Sequence))
	add(n, keyName, str(s.Name))
	add(n, keyKind, str(string(s.Kind)))
	add(n, keyEnabled, boolean(s.Enabled))
	add(n, keyOnError, str(string(s.OnError)))
	add(n, keyDatabase, str(s.Database))
	add(n, keyConnStr, str(s.ConnStr))
	add(n, keyComment, str(s.Comment))
	add(n, keyBody, str(s.Body))
	return n
}

func scheduleNode(s job.Schedule, opts Options) *yaml.Node {
	n := mapping()
	add(n, keyName, str(s.Name))
	add(n, keyEnabled, boolean(s.Enabled))
	add(n, keyComment, str(s.Comment))
	add(n, job.MinuteField.Name, recurrence(s.Minutes, job.MinuteField))
	add(n, job.HourField.Name, recurrence(s.Hours, job.HourField))
	add(n, job.MonthDayField.Name, recurrence(s.MonthDays, job.MonthDayField))
	add(n, job.MonthField.Name, recurrence(s.Months, job.MonthField))
	add(n, job.WeekDayField.Name, recurrence(s.WeekDays, job.WeekDayField))
	if opts.IncludeScheduleWindow {
		add(n, keyStart, timestamp(s.Start))
		add(n, keyEnd, timestamp(s.End))
	}
	add(n, keyExcludedRuns, moments(s.ExcludedRuns))
	add(n, keyExtraRuns, moments(s.ExtraRuns))
	return n
}

func recurrence(r job.Recurrence, f job.Field) *yaml.Node {
	if r.Any {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: wildcard, Style: yaml.SingleQuotedStyle}
	}
	n := sequence()
	n.Style = yaml.FlowStyle
	for _, v := range r.Values {
		if f.Named(v) {
			n.Content = append(n.Content, str(f.Label(v)))
		} else {
			n.Content = append(n.Content, integer(v))
		}
	}
	return n
}

func moments(ms []job.Moment) *yaml.Node {
	n := sequence()
	for _, m := range ms {
		n.Content = append(n.Content, str(m.String()))
	}
	if len(ms) == 0 {
		n.Style = yaml.FlowStyle
	}
	return n
}

func timestamp(t *time.Time) *yaml.Node {
	if t == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return str(t.UTC().Format(timestampLayout))
}

func add(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// str writes multi-line text as a literal block. Text with control or
// non-ASCII characters is checked to read back unchanged in the chosen
// style and falls back to double quotes otherwise: a literal block whose
// first line starts with a tab, for one, does not parse.
func str(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	if strings.Contains(v, "\n") {
		n.Style = yaml.LiteralStyle
	}
	if special(v) && !readsBack(n) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func special(v string) bool {
	for i := 0; i < len(v); i++ {
		if c := v[i]; c < 0x20 || c >= 0x7f {
			return true
		}
	}
	return false
}

func readsBack(n *yaml.Node) bool {
	item := mapping()
	add(item, keyBody, n)
	list := sequence()
	list.Content = append(list.Content, item)
	data, err := render(list)
	if err != nil {
		return false
	}
	var back []map[string]string
	if err := yaml.Unmarshal(data, &back); err != nil || len(back) != 1 {
		return false
	}
	v, ok := back[0][keyBody]
	return ok && v == n.Value
}

func boolean(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func integer(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}
