package shared

// Process exit codes. Every failure category maps to its own code so that
// scripts can tell a bad file from a broken database.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitUsage              = 2
	ExitValidation         = 3
	ExitParse              = 4
	ExitUnsupportedVersion = 5
	ExitStore              = 6
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindValidation:
		return ExitValidation
	case KindParse:
		return ExitParse
	case KindUnsupportedVersion:
		return ExitUnsupportedVersion
	case KindStore:
		return ExitStore
	case KindUsage:
		return ExitUsage
	default:
		return ExitFailure
	}
}
