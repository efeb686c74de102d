package pgagent

// Queries are written for PostgreSQL; Dialect.SQL adapts them to the local
// store. Steps have no position column: pgAgent runs them in jstname order,
// so every read orders steps the same way and derives sequences from it.
const (
	selectClassesQuery = `SELECT jclid, jclname FROM pgagent.pga_jobclass`

	selectJobsQuery = `
		SELECT j.jobid, j.jobname, c.jclname, j.jobenabled,
		       COALESCE(j.jobhostagent, ''), COALESCE(j.jobdesc, ''),
		       j.jobcreated, j.jobchanged
		  FROM pgagent.pga_job j
		  JOIN pgagent.pga_jobclass c ON c.jclid = j.jobjclid
		 ORDER BY j.jobname COLLATE "C", j.jobid`

	selectStepsQuery = `
		SELECT jstid, jstjobid, jstname, COALESCE(jstdesc, ''), jstenabled,
		       jstkind, COALESCE(jstcode, ''), COALESCE(jstdbname::text, ''),
		       jstonerror, %s
		  FROM pgagent.pga_jobstep
		 ORDER BY jstjobid, jstname COLLATE "C", jstid`

	selectSchedulesQuery = `
		SELECT jscid, jscjobid, jscname, COALESCE(jscdesc, ''), jscenabled,
		       jscstart, jscend,
		       jscminutes::text, jschours::text, jscweekdays::text,
		       jscmonthdays::text, jscmonths::text
		  FROM pgagent.pga_schedule
		 ORDER BY jscjobid, jscname COLLATE "C"`

	selectExceptionsQuery = `
		SELECT jexscid, jexdate::text, jextime::text
		  FROM pgagent.pga_exception`

	selectExtraRunsQuery = `
		SELECT jerscid, jerdate, jertime
		  FROM pgagent.pga_extrarun`

	insertJobQuery = `
		INSERT INTO pgagent.pga_job (jobjclid, jobname, jobdesc, jobhostagent, jobenabled)
		VALUES (?, ?, ?, ?, ?)
		RETURNING jobid`

	updateJobQuery = `
		UPDATE pgagent.pga_job
		   SET jobjclid = ?, jobdesc = ?, jobhostagent = ?, jobenabled = ?, jobchanged = now()
		 WHERE jobid = ?`

	deleteJobQuery = `DELETE FROM pgagent.pga_job WHERE jobid = ?`

	insertStepQuery = `
		INSERT INTO pgagent.pga_jobstep
		       (jstjobid, jstname, jstdesc, jstenabled, jstkind, jstcode, jstdbname, jstonerror%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?%s)`

	updateStepQuery = `
		UPDATE pgagent.pga_jobstep
		   SET jstname = ?, jstdesc = ?, jstenabled = ?, jstkind = ?, jstcode = ?,
		       jstdbname = ?, jstonerror = ?%s
		 WHERE jstid = ?`

	deleteStepQuery = `DELETE FROM pgagent.pga_jobstep WHERE jstid = ?`

	insertScheduleQuery = `
		INSERT INTO pgagent.pga_schedule
		       (jscjobid, jscname, jscdesc, jscenabled,
		        jscminutes, jschours, jscweekdays, jscmonthdays, jscmonths%s)
		VALUES (?, ?, ?, ?,
		        ?::text::bool[], ?::text::bool[], ?::text::bool[], ?::text::bool[], ?::text::bool[]%s)
		RETURNING jscid`

	updateScheduleQuery = `
		UPDATE pgagent.pga_schedule
		   SET jscdesc = ?, jscenabled = ?,
		       jscminutes = ?::text::bool[], jschours = ?::text::bool[], jscweekdays = ?::text::bool[],
		       jscmonthdays = ?::text::bool[], jscmonths = ?::text::bool[]%s
		 WHERE jscid = ?`

	deleteScheduleQuery = `DELETE FROM pgagent.pga_schedule WHERE jscid = ?`

	deleteExceptionsQuery = `DELETE FROM pgagent.pga_exception WHERE jexscid = ?`

	insertExceptionQuery = `
		INSERT INTO pgagent.pga_exception (jexscid, jexdate, jextime)
		VALUES (?, ?::text::date, ?::text::time)`

	deleteExtraRunsQuery = `DELETE FROM pgagent.pga_extrarun WHERE jerscid = ?`

	insertExtraRunQuery = `
		INSERT INTO pgagent.pga_extrarun (jerscid, jerdate, jertime)
		VALUES (?, ?, ?)`
)

// Optional column fragments, spliced into the queries above when the
// detected schema has the column.
const (
	connStrSelect     = `COALESCE(jstconnstr, '')`
	connStrSelectNone = `''`
	connStrColumn     = `, jstconnstr`
	connStrValue      = `, ?`
	connStrSet        = `, jstconnstr = ?`

	windowColumns = `, jscstart, jscend`
	windowValues  = `, COALESCE(?, now()), ?`
	windowSet     = `, jscstart = COALESCE(?, now()), jscend = ?`
)
