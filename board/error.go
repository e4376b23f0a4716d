package board

import "github.com/c360/boardkit/status"

// StatusError pairs a stable status.Code with the underlying Go error, so a
// non-Go binding can switch on Code while a Go caller can still errors.Is /
// errors.As through to Err.
type StatusError struct {
	Code status.Code
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus wraps err with a status code. Returns nil if err is nil.
func WithStatus(code status.Code, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Code: code, Err: err}
}
