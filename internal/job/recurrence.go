package job

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Field describes the domain of one recurrence field.
type Field struct {
	Name  string
	Min   int
	Max   int
	names map[int]string
}

// Recurrence fields in pgAgent flag-array order. Month day 32 is pgAgent's
// "last day of month" flag.
var (
	MinuteField   = Field{Name: "minutes", Min: 0, Max: 59}
	HourField     = Field{Name: "hours", Min: 0, Max: 23}
	MonthDayField = Field{Name: "monthdays", Min: 1, Max: 32, names: map[int]string{32: "last"}}
	MonthField    = Field{Name: "months", Min: 1, Max: 12}
	WeekDayField  = Field{Name: "weekdays", Min: 0, Max: 6, names: map[int]string{
		0: "sunday",
		1: "monday",
		2: "tuesday",
		3: "wednesday",
		4: "thursday",
		5: "friday",
		6: "saturday",
	}}
)

// LastDay is the MonthDays value for "last day of month".
const LastDay = 32

// Size is the number of flags pgAgent stores for the field.
func (f Field) Size() int {
	return f.Max - f.Min + 1
}

// Label returns the text form of v: a name for named values, digits otherwise.
func (f Field) Label(v int) string {
	if n, ok := f.names[v]; ok {
		return n
	}
	return strconv.Itoa(v)
}

// Named reports whether v is written as a name rather than a number.
func (f Field) Named(v int) bool {
	_, ok := f.names[v]
	return ok
}

// Parse converts a text token into a field value.
func (f Field) Parse(token string) (int, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	for v, n := range f.names {
		if n == token {
			return v, nil
		}
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("unknown %s value %q", f.Name, token)
	}
	if _, named := f.names[v]; named || v < f.Min || v > f.Max {
		return 0, fmt.Errorf("%s value %d out of range %d..%d", f.Name, v, f.Min, f.maxNumeric())
	}
	return v, nil
}

func (f Field) maxNumeric() int {
	m := f.Max
	for m > f.Min {
		if _, named := f.names[m]; !named {
			break
		}
		m--
	}
	return m
}

// Recurrence is either the wildcard (Any) or a non-empty set of values.
// The zero value is an empty set and fails validation.
type Recurrence struct {
	Any    bool
	Values []int
}

// Every returns the wildcard recurrence.
func Every() Recurrence {
	return Recurrence{Any: true}
}

// Only returns an explicit recurrence set.
func Only(values ...int) Recurrence {
	return Recurrence{Values: values}
}

// Equal reports whether two recurrences select the same values.
func (r Recurrence) Equal(o Recurrence) bool {
	if r.Any || o.Any {
		return r.Any == o.Any
	}
	return slices.Equal(r.Values, o.Values)
}

// Contains reports whether v is selected.
func (r Recurrence) Contains(v int) bool {
	return r.Any || slices.Contains(r.Values, v)
}

// Validate checks that r is a wildcard or a non-empty set within f's domain.
func (r Recurrence) Validate(f Field) error {
	if r.Any {
		return nil
	}
	if len(r.Values) == 0 {
		return fmt.Errorf("empty set, use '*' for every value")
	}
	for _, v := range r.Values {
		if v < f.Min || v > f.Max {
			return fmt.Errorf("value %d out of range %d..%d", v, f.Min, f.Max)
		}
	}
	return nil
}

// Flags expands r into a pgAgent flag array for f.
func (r Recurrence) Flags(f Field) []bool {
	flags := make([]bool, f.Size())
	for i := range flags {
		flags[i] = r.Contains(f.Min + i)
	}
	return flags
}

// FromFlags builds a recurrence from a pgAgent flag array. Both all-true and
// all-false arrays mean "every value" to the pgAgent scheduler.
func FromFlags(f Field, flags []bool) Recurrence {
	var values []int
	for i, set := range flags {
		if set {
			values = append(values, f.Min+i)
		}
	}
	if len(values) == 0 || len(values) == f.Size() {
		return Every()
	}
	return Only(values...)
}

// String renders r as "*" or a comma separated list of labels.
func (r Recurrence) String(f Field) string {
	if r.Any {
		return "*"
	}
	labels := make([]string, len(r.Values))
	for i, v := range r.Values {
		labels[i] = f.Label(v)
	}
	return strings.Join(labels, ",")
}

// normalized sorts and deduplicates the set. A set naming every value of f
// collapses to the wildcard, which is how the store reads it back.
func (r Recurrence) normalized(f Field) Recurrence {
	if r.Any {
		return Every()
	}
	values := slices.Clone(r.Values)
	slices.Sort(values)
	values = slices.Compact(values)
	if len(values) == f.Size() {
		return Every()
	}
	return Recurrence{Values: values}
}

func (r Recurrence) clone() Recurrence {
	return Recurrence{Any: r.Any, Values: slices.Clone(r.Values)}
}
