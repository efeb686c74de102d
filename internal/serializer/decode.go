package serializer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/shared"
)

const (
	keyClass        = "class"
	keyEnabled      = "enabled"
	keyHost         = "host"
	keyComment      = "comment"
	keySteps        = "steps"
	keySchedules    = "schedules"
	keySequence     = "sequence"
	keyName         = "name"
	keyKind         = "kind"
	keyOnError      = "on_error"
	keyDatabase     = "database"
	keyConnStr      = "connection_string"
	keyBody         = "body"
	keyStart        = "start"
	keyEnd          = "end"
	keyExcludedRuns = "excluded_runs"
	keyExtraRuns    = "extra_runs"

	wildcard = "*"
)

// Accepted start/end layouts. Output always uses RFC 3339 with fractional
// seconds when there are any.
var windowLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Document is the decoded content of one YAML document.
type Document struct {
	Jobs []job.Job
	// Windows names the schedules that carry a start or end key, even a
	// null one. Sync compares and writes the window of those only.
	Windows job.WindowSet
}

// Decode parses a YAML document into validated, normalized jobs.
// Structural problems are reported as *shared.ParseError; invariant
// violations as a *shared.ValidationError wrapped in a ParseError that
// carries the job's location.
func Decode(data []byte, source string) ([]job.Job, error) {
	doc, err := DecodeDocument(data, source)
	if err != nil {
		return nil, err
	}
	return doc.Jobs, nil
}

// DecodeDocument is Decode that also reports document-level facts.
func DecodeDocument(data []byte, source string) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, syntaxError(source, err)
	}
	d := &decoder{source: source, windows: make(job.WindowSet)}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Document{}, d.fail(&root, "", "document is empty")
	}
	jobs, err := d.jobs(root.Content[0])
	if err != nil {
		return Document{}, err
	}
	return Document{Jobs: jobs, Windows: d.windows}, nil
}

type decoder struct {
	source  string
	windows job.WindowSet
}

func (d *decoder) fail(n *yaml.Node, field, reason string) error {
	return &shared.ParseError{Source: d.source, Line: n.Line, Column: n.Column, Field: field, Reason: reason}
}

func (d *decoder) jobs(n *yaml.Node) ([]job.Job, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.fail(n, "", "expected a mapping of job name to job")
	}
	var out []job.Job
	err := d.fields(n, "", func(name string, k, v *yaml.Node) error {
		j, err := d.job(k, v)
		if err != nil {
			return err
		}
		normalized, err := job.New(j)
		if err != nil {
			return &shared.ParseError{Source: d.source, Line: k.Line, Column: k.Column, Field: name, Err: err}
		}
		out = append(out, normalized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	job.SortByName(out)
	return out, nil
}

func (d *decoder) job(k, v *yaml.Node) (job.Job, error) {
	j := job.Job{Name: k.Value, Class: job.DefaultClass, Enabled: true}
	if v.Kind == yaml.ScalarNode && v.Tag == "!!null" {
		return j, nil
	}
	if v.Kind != yaml.MappingNode {
		return j, d.fail(v, k.Value, "expected a mapping")
	}
	err := d.fields(v, k.Value, func(key string, kn, vn *yaml.Node) error {
		field := k.Value + "." + key
		var err error
		switch key {
		case keyClass:
			j.Class, err = d.str(vn, field)
		case keyEnabled:
			j.Enabled, err = d.boolean(vn, field)
		case keyHost:
			j.Host, err = d.str(vn, field)
		case keyComment:
			j.Comment, err = d.str(vn, field)
		case keySteps:
			j.Steps, err = d.steps(vn, field)
		case keySchedules:
			j.Schedules, err = d.schedules(vn, k.Value, field)
		default:
			err = d.unknown(kn, field)
		}
		return err
	})
	return j, err
}

func (d *decoder) steps(n *yaml.Node, field string) ([]job.Step, error) {
	items, err := d.list(n, field)
	if err != nil {
		return nil, err
	}
	steps := make([]job.Step, 0, len(items))
	for i, item := range items {
		// an omitted sequence defaults to the list position
		s := job.Step{Sequence: i + 1, Kind: job.KindSQL, Enabled: true, OnError: job.OnErrorFail}
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if item.Kind != yaml.MappingNode {
			return nil, d.fail(item, prefix, "expected a mapping")
		}
		err := d.fields(item, prefix, func(key string, kn, vn *yaml.Node) error {
			f := prefix + "." + key
			var err error
			switch key {
			case keySequence:
				s.Sequence, err = d.integer(vn, f)
			case keyName:
				s.Name, err = d.str(vn, f)
			case keyKind:
				var v string
				v, err = d.str(vn, f)
				s.Kind = job.StepKind(v)
				if err == nil && !s.Kind.Valid() {
					err = d.fail(vn, f, fmt.Sprintf("unknown step kind %q, want sql or batch", v))
				}
			case keyEnabled:
				s.Enabled, err = d.boolean(vn, f)
			case keyOnError:
				var v string
				v, err = d.str(vn, f)
				s.OnError = job.OnError(v)
				if err == nil && !s.OnError.Valid() {
					err = d.fail(vn, f, fmt.Sprintf("unknown on_error %q, want fail, ignore or success", v))
				}
			case keyDatabase:
				s.Database, err = d.str(vn, f)
			case keyConnStr:
				s.ConnStr, err = d.str(vn, f)
			case keyComment:
				s.Comment, err = d.str(vn, f)
			case keyBody:
				s.Body, err = d.str(vn, f)
			default:
				err = d.unknown(kn, f)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func (d *decoder) schedules(n *yaml.Node, jobName, field string) ([]job.Schedule, error) {
	items, err := d.list(n, field)
	if err != nil {
		return nil, err
	}
	out := make([]job.Schedule, 0, len(items))
	for i, item := range items {
		s := job.Schedule{
			Enabled:   true,
			Minutes:   job.Every(),
			Hours:     job.Every(),
			MonthDays: job.Every(),
			Months:    job.Every(),
			WeekDays:  job.Every(),
		}
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if item.Kind != yaml.MappingNode {
			return nil, d.fail(item, prefix, "expected a mapping")
		}
		window := false
		err := d.fields(item, prefix, func(key string, kn, vn *yaml.Node) error {
			f := prefix + "." + key
			var err error
			switch key {
			case keyName:
				s.Name, err = d.str(vn, f)
			case keyEnabled:
				s.Enabled, err = d.boolean(vn, f)
			case keyComment:
				s.Comment, err = d.str(vn, f)
			case job.MinuteField.Name:
				s.Minutes, err = d.recurrence(vn, f, job.MinuteField)
			case job.HourField.Name:
				s.Hours, err = d.recurrence(vn, f, job.HourField)
			case job.MonthDayField.Name:
				s.MonthDays, err = d.recurrence(vn, f, job.MonthDayField)
			case job.MonthField.Name:
				s.Months, err = d.recurrence(vn, f, job.MonthField)
			case job.WeekDayField.Name:
				s.WeekDays, err = d.recurrence(vn, f, job.WeekDayField)
			case keyStart:
				window = true
				s.Start, err = d.timestamp(vn, f)
			case keyEnd:
				window = true
				s.End, err = d.timestamp(vn, f)
			case keyExcludedRuns:
				s.ExcludedRuns, err = d.moments(vn, f)
			case keyExtraRuns:
				s.ExtraRuns, err = d.moments(vn, f)
			default:
				err = d.unknown(kn, f)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if window {
			d.windows.Add(jobName, s.Name)
		}
		out = append(out, s)
	}
	return out, nil
}

// fields walks a mapping in document order and rejects duplicate keys.
func (d *decoder) fields(n *yaml.Node, field string, fn func(key string, k, v *yaml.Node) error) error {
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return d.fail(k, field, "keys must be scalars")
		}
		if seen[k.Value] {
			return d.fail(k, join(field, k.Value), "duplicate key")
		}
		seen[k.Value] = true
		if err := fn(k.Value, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) unknown(k *yaml.Node, field string) error {
	return d.fail(k, field, "unknown key")
}

func (d *decoder) list(n *yaml.Node, field string) ([]*yaml.Node, error) {
	switch {
	case n.Kind == yaml.ScalarNode && n.Tag == "!!null":
		return nil, nil
	case n.Kind != yaml.SequenceNode:
		return nil, d.fail(n, field, "expected a list")
	}
	return n.Content, nil
}

func (d *decoder) str(n *yaml.Node, field string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", d.fail(n, field, "expected a string")
	}
	if n.Tag == "!!null" {
		return "", nil
	}
	return n.Value, nil
}

func (d *decoder) boolean(n *yaml.Node, field string) (bool, error) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!bool" {
		return false, d.fail(n, field, "expected true or false")
	}
	v, err := strconv.ParseBool(n.Value)
	if err != nil {
		return false, d.fail(n, field, "expected true or false")
	}
	return v, nil
}

func (d *decoder) integer(n *yaml.Node, field string) (int, error) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!int" {
		return 0, d.fail(n, field, "expected an integer")
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, d.fail(n, field, "expected an integer")
	}
	return v, nil
}

// recurrence accepts '*', a single value or a list of values. An empty list
// is rejected: it is never read as "every value".
func (d *decoder) recurrence(n *yaml.Node, field string, f job.Field) (job.Recurrence, error) {
	var items []*yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return job.Recurrence{}, d.fail(n, field, "empty value, use '*' for every value")
		}
		if strings.TrimSpace(n.Value) == wildcard {
			return job.Every(), nil
		}
		items = []*yaml.Node{n}
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return job.Recurrence{}, d.fail(n, field, "empty set, use '*' for every value")
		}
		items = n.Content
	default:
		return job.Recurrence{}, d.fail(n, field, "expected '*' or a list")
	}

	values := make([]int, 0, len(items))
	for _, item := range items {
		if item.Kind != yaml.ScalarNode {
			return job.Recurrence{}, d.fail(item, field, "expected a scalar value")
		}
		v, err := f.Parse(item.Value)
		if err != nil {
			return job.Recurrence{}, d.fail(item, field, err.Error())
		}
		values = append(values, v)
	}
	return job.Only(values...), nil
}

func (d *decoder) timestamp(n *yaml.Node, field string) (*time.Time, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, d.fail(n, field, "expected a timestamp")
	}
	if n.Tag == "!!null" {
		return nil, nil
	}
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, n.Value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, d.fail(n, field, fmt.Sprintf("invalid timestamp %q, want RFC 3339", n.Value))
}

func (d *decoder) moments(n *yaml.Node, field string) ([]job.Moment, error) {
	items, err := d.list(n, field)
	if err != nil {
		return nil, err
	}
	out := make([]job.Moment, 0, len(items))
	for i, item := range items {
		f := fmt.Sprintf("%s[%d]", field, i)
		v, err := d.str(item, f)
		if err != nil {
			return nil, err
		}
		m, err := job.ParseMoment(v)
		if err != nil {
			return nil, d.fail(item, f, err.Error())
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func syntaxError(source string, err error) error {
	pe := &shared.ParseError{Source: source, Err: err}
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		pe.Reason = te.Errors[0]
		return pe
	}
	// yaml.v3 reports syntax errors as "yaml: line N: message"
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if rest, ok := strings.CutPrefix(msg, "line "); ok {
		if num, tail, ok := strings.Cut(rest, ":"); ok {
			if line, convErr := strconv.Atoi(num); convErr == nil {
				pe.Line = line
				msg = strings.TrimSpace(tail)
			}
		}
	}
	pe.Reason = msg
	return pe
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
