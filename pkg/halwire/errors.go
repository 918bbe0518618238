package halwire

import (
	"errors"
)

var (
	ErrMessageTooLarge   = errors.New("halwire: message body too large")
	ErrUnexpectedCommand = errors.New("halwire: unexpected command")
	ErrUnexpectedID      = errors.New("halwire: response id does not match request")
)

// RemoteError is reported by the HAL side in a CmdError frame.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return "halwire: remote error " + e.Code.String() + " (" + e.Message + ")"
	}
	return "halwire: remote error " + e.Code.String()
}
