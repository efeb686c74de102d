package pgagent

import (
	"fmt"
	"strings"
	"time"

	"pgagent-yaml/internal/job"
)

var (
	kindCodes = map[job.StepKind]string{
		job.KindSQL:   "s",
		job.KindBatch: "b",
	}
	onErrorCodes = map[job.OnError]string{
		job.OnErrorFail:    "f",
		job.OnErrorSuccess: "s",
		job.OnErrorIgnore:  "i",
	}
)

func kindFromCode(code string) (job.StepKind, error) {
	for k, c := range kindCodes {
		if c == code {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown jstkind %q", code)
}

func onErrorFromCode(code string) (job.OnError, error) {
	for o, c := range onErrorCodes {
		if c == code {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown jstonerror %q", code)
}

// formatFlags renders a flag array literal: {t,f,t}.
func formatFlags(flags []bool) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range flags {
		if i > 0 {
			b.WriteByte(',')
		}
		if f {
			b.WriteByte('t')
		} else {
			b.WriteByte('f')
		}
	}
	b.WriteByte('}')
	return b.String()
}

// parseFlags reads a bool[] text literal. PostgreSQL prints t/f, but true
// and false are accepted as well.
func parseFlags(s string) ([]bool, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("invalid flag array %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	flags := make([]bool, len(parts))
	for i, p := range parts {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "t", "true":
			flags[i] = true
		case "f", "false", "null":
			flags[i] = false
		default:
			return nil, fmt.Errorf("invalid flag %q in %q", p, s)
		}
	}
	return flags, nil
}

func recurrenceFromFlags(f job.Field, literal string) (job.Recurrence, error) {
	flags, err := parseFlags(literal)
	if err != nil {
		return job.Recurrence{}, fmt.Errorf("%s: %w", f.Name, err)
	}
	if len(flags) != f.Size() {
		return job.Recurrence{}, fmt.Errorf("%s: want %d flags, got %d", f.Name, f.Size(), len(flags))
	}
	return job.FromFlags(f, flags), nil
}

func flagsArg(r job.Recurrence, f job.Field) string {
	return formatFlags(r.Flags(f))
}

// nullTime scans timestamptz values from pgx (time.Time) as well as the
// RFC 3339 text the local store keeps.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func (n *nullTime) Scan(v any) error {
	switch t := v.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = t.UTC(), true
		return nil
	case []byte:
		return n.parse(string(t))
	case string:
		return n.parse(t)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", v)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
