package pgagent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDialect_SQL_Postgres(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "numbers_placeholders",
			in:   `UPDATE pgagent.pga_job SET jobdesc = ?, jobenabled = ? WHERE jobid = ?`,
			want: `UPDATE pgagent.pga_job SET jobdesc = $1, jobenabled = $2 WHERE jobid = $3`,
		},
		{
			name: "skips_quoted_question_marks",
			in:   `SELECT '?' || jobname FROM pgagent.pga_job WHERE jobid = ?`,
			want: `SELECT '?' || jobname FROM pgagent.pga_job WHERE jobid = $1`,
		},
		{
			name: "keeps_casts",
			in:   `VALUES (?::text::bool[])`,
			want: `VALUES ($1::text::bool[])`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Postgres.SQL(tt.in))
		})
	}
}

func TestDialect_SQL_SQLite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops_schema_and_casts",
			in:   `INSERT INTO pgagent.pga_exception (jexscid, jexdate, jextime) VALUES (?, ?::text::date, ?::text::time)`,
			want: `INSERT INTO pga_exception (jexscid, jexdate, jextime) VALUES (?, ?, ?)`,
		},
		{
			name: "flag_arrays",
			in:   `SET jscminutes = ?::text::bool[] WHERE x = jscminutes::text`,
			want: `SET jscminutes = ? WHERE x = jscminutes`,
		},
		{
			name: "collation_and_now",
			in:   `ORDER BY jstname COLLATE "C"; SET jobchanged = now()`,
			want: `ORDER BY jstname COLLATE BINARY; SET jobchanged = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLite.SQL(tt.in))
		})
	}
}

func TestDialect_TimeArg(t *testing.T) {
	assert.Nil(t, Postgres.TimeArg(nil))
	assert.Nil(t, SQLite.TimeArg(nil))

	ts := time.Date(2025, 1, 2, 6, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	assert.Equal(t, time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC), Postgres.TimeArg(&ts))
	assert.Equal(t, "2025-01-02T03:00:00Z", SQLite.TimeArg(&ts))

	fine := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)
	assert.Equal(t, "2025-01-02T03:04:05.123456Z", SQLite.TimeArg(&fine))
}
