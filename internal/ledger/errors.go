package ledger

import "errors"

// Domain errors. A command that fails with one of them leaves every table
// and session exactly as it was.
var (
	ErrTableNotFound         = errors.New("table not found")
	ErrTableBusy             = errors.New("table is occupied")
	ErrTableUnderMaintenance = errors.New("table is under maintenance")
	ErrNoActiveSession       = errors.New("no active session")
	ErrAlreadyPaused         = errors.New("session already paused")
	ErrNotPaused             = errors.New("session is not paused")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidOptions        = errors.New("invalid options")

	// ErrStorage wraps every persistence or locking failure. It is the only
	// error worth retrying.
	ErrStorage = errors.New("storage failure")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrTableNotFound, "table_not_found"},
	{ErrTableBusy, "table_busy"},
	{ErrTableUnderMaintenance, "table_under_maintenance"},
	{ErrNoActiveSession, "no_active_session"},
	{ErrAlreadyPaused, "already_paused"},
	{ErrNotPaused, "not_paused"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvalidOptions, "invalid_options"},
	{ErrStorage, "storage_failure"},
}

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}

// Code returns a stable snake_case identifier for err, "ok" for nil and
// "internal" for errors outside this package.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

func isDomain(err error) bool {
	for _, c := range codes {
		if c.err != ErrStorage && errors.Is(err, c.err) {
			return true
		}
	}
	return false
}
