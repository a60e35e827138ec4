package directory

import "errors"

var (
	// ErrNotFound reports a lookup that produced no record and no
	// underlying backend error.
	ErrNotFound = errors.New("record not found")

	// ErrServiceNotRunning reports that no directory daemon is available
	// to serve the default session.
	ErrServiceNotRunning = errors.New("directory service not running")
)

// Diagnostic is the structured error text a directory backend reports: a
// description, a failure reason and a recovery suggestion. Reason and
// Recovery may be empty.
type Diagnostic struct {
	Description string
	Reason      string
	Recovery    string
}

func (d Diagnostic) String() string {
	s := d.Description
	if d.Reason != "" {
		s += "  " + d.Reason
	}
	if d.Recovery != "" {
		s += "  " + d.Recovery
	}
	return s
}

// ConnectionError means no directory backend could be reached, including a
// failed degraded-mode fallback.
type ConnectionError struct {
	Diag Diagnostic
	Err  error
}

func (e *ConnectionError) Error() string { return e.Diag.String() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// LookupError means the backend failed while searching for a record.
type LookupError struct {
	Diag Diagnostic
	Err  error
}

func (e *LookupError) Error() string { return e.Diag.String() }
func (e *LookupError) Unwrap() error { return e.Err }

// AuthError means the backend rejected a password mutation.
type AuthError struct {
	Diag Diagnostic
	Err  error
}

func (e *AuthError) Error() string { return e.Diag.String() }
func (e *AuthError) Unwrap() error { return e.Err }

// DiagnosticOf extracts the structured diagnostic from err when it is one
// of the typed directory errors. ok is false for plain errors.
func DiagnosticOf(err error) (Diagnostic, bool) {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Diag, true
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Diag, true
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Diag, true
	}
	return Diagnostic{}, false
}
