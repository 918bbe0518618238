package hal

import (
	"errors"
)

var (
	// ErrUnavailable means the HAL handle could not be obtained.
	ErrUnavailable = errors.New("hal: service unavailable")
	// ErrDisconnected means the transport broke during a call. The handle
	// that produced it must be reset.
	ErrDisconnected = errors.New("hal: service disconnected")
	ErrClosed       = errors.New("hal: client closed")
)
