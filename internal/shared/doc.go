// Package shared contains the error taxonomy shared by every layer of the
// tool without domain-specific logic.
//
// # Error Types
//
// Four typed errors describe the failures a caller must be able to tell apart:
//
//   - ValidationError: an entity invariant was violated (bad file content)
//   - ParseError: a definition file is malformed; carries source, line and field
//   - UnsupportedVersionError: the store schema is outside the supported set
//   - StoreError: a store transaction failed; carries the failed operation
//
// Each typed error matches its sentinel through errors.Is:
//
//	var perr *shared.ParseError
//	if errors.As(err, &perr) {
//	    fmt.Println(perr.Source, perr.Line)
//	}
//	if errors.Is(err, shared.ErrStore) {
//	    // transaction rolled back
//	}
//
// # Error Classification
//
// Use KindOf() to classify errors into categories:
//
//	switch shared.KindOf(err) {
//	case shared.KindParse:
//	    // fix the file at the reported location
//	case shared.KindUnsupportedVersion:
//	    // rerun with --ignore-version
//	}
//
// # Kind Priority Table
//
// When several kinds are present in one chain, KindOf returns the highest priority kind:
//
//	Priority | Kind                   | Description
//	---------|------------------------|------------------------------
//	1        | KindCanceled           | Context cancellation (highest)
//	2        | KindParse              | Malformed definition file
//	3        | KindValidation         | Entity invariant violation
//	4        | KindUnsupportedVersion | Store schema outside supported set
//	5        | KindStore              | Transaction or connectivity failure
//	6        | KindUsage              | Bad flags, arguments or output directory
//	7        | KindNotFound           | Missing file or directory
//	8        | KindInternal           | Programming error (lowest)
//
// # Exit Codes
//
// ExitCode maps the kind of an error to the process exit code, so the CLI
// never inspects error strings.
//
// # Error Message Style Guide
//
// - Use lowercase messages: "job not found" not "Job not found"
// - Avoid punctuation: "invalid weekday" not "Invalid weekday."
// - Keep messages composable: they will often be wrapped with additional context
package shared
