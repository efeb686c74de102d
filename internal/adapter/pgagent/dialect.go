package pgagent

import (
	"strconv"
	"strings"
	"time"

	"pgagent-yaml/internal/compat"
)

// Dialect adapts the PostgreSQL query text used throughout the package to a
// concrete store. Queries are written once, against the pgagent schema with
// `?` placeholders and explicit casts; a dialect rewrites them.
type Dialect struct {
	Name   string
	Flavor compat.Flavor

	rewrite      *strings.Replacer
	numbered     bool
	versionQuery string
	timeArg      func(time.Time) any
}

// Postgres targets the pgagent extension: `$n` placeholders, pgagent schema,
// bool[] flag arrays and date/time columns passed through text casts.
var Postgres = Dialect{
	Name:         "postgres",
	Flavor:       compat.FlavorPgAgent,
	rewrite:      strings.NewReplacer(),
	numbered:     true,
	versionQuery: `SELECT extversion FROM pg_extension WHERE extname = 'pgagent'`,
	timeArg:      func(t time.Time) any { return t.UTC() },
}

// SQLite targets the local store: the same tables without a schema, flag
// arrays kept as their `{t,f,...}` literal and RFC 3339 text timestamps.
var SQLite = Dialect{
	Name:   "sqlite",
	Flavor: compat.FlavorLocal,
	rewrite: strings.NewReplacer(
		"pgagent.", "",
		"::text::bool[]", "",
		"::text::date", "",
		"::text::time", "",
		"::text", "",
		`COLLATE "C"`, "COLLATE BINARY",
		"now()", "strftime('%Y-%m-%dT%H:%M:%SZ', 'now')",
	),
	versionQuery: `SELECT version FROM pga_version`,
	timeArg:      func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

// SQL returns query in the dialect's syntax.
func (d Dialect) SQL(query string) string {
	query = d.rewrite.Replace(query)
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for _, r := range query {
		switch {
		case r == '\'':
			inString = !inString
		case r == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TimeArg converts a timestamp into a query argument the driver stores
// without loss.
func (d Dialect) TimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.timeArg(*t)
}
