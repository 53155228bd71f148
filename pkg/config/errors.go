package config

// Error is a fatal configuration problem. It is reported at startup and
// never at query time.
type Error struct {
	Reason string
	Err    error
}

func newError(reason string) *Error {
	return &Error{Reason: reason}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "config: " + e.Reason + ": " + e.Err.Error()
	}
	return "config: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }
