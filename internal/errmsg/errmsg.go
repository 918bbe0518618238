// Package errmsg attaches a detail message to a sentinel error.
package errmsg

type ErrorWithMessage struct {
	Message string
	Err     error
}

// New wraps err so that errors.Is still matches it.
func New(err error, msg string) *ErrorWithMessage {
	return &ErrorWithMessage{
		Message: msg,
		Err:     err,
	}
}

func (m *ErrorWithMessage) Error() string {
	if m.Message != "" {
		return m.Err.Error() + " (" + m.Message + ")"
	}
	return m.Err.Error()
}

func (m *ErrorWithMessage) Unwrap() error {
	return m.Err
}
