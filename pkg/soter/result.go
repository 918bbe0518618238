package soter

import (
	"errors"
	"fmt"

	"github.com/samber/mo"
)

var (
	ErrKeyNameEmpty   = errors.New("soter: key name is empty")
	ErrChallengeEmpty = errors.New("soter: challenge is empty")
	ErrSessionInvalid = errors.New("soter: invalid signing session")
)

// Reason tells why an operation did not reach a HAL result.
type Reason int

const (
	ReasonInvalidArgument Reason = iota + 1
	ReasonUnavailable
	ReasonRemote
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidArgument:
		return "invalid argument"
	case ReasonUnavailable:
		return "unavailable"
	case ReasonRemote:
		return "remote"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Failure is the error side of every operation result. Code is the legacy
// value reported to clients for it.
type Failure struct {
	Reason Reason
	Code   int32
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("soter: %s (%d): %v", f.Reason, f.Code, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// failureCodes are the legacy codes of one operation for a HAL that cannot
// be obtained and for a HAL call that fails.
type failureCodes struct {
	unavailable int32
	failed      int32
}

var (
	failedCodes      = failureCodes{unavailable: CodeFailed, failed: CodeFailed}
	unavailableCodes = failureCodes{unavailable: CodeUnavailable, failed: CodeUnavailable}
	exportAskCodes   = failureCodes{unavailable: CodeUnavailable, failed: CodeFailed}
)

func invalid[T any](code int32, err error) mo.Result[T] {
	return mo.Err[T](&Failure{
		Reason: ReasonInvalidArgument,
		Code:   code,
		Err:    err,
	})
}

// failureCode projects err to its legacy code.
func failureCode(err error) int32 {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return CodeFailed
}

// ExportResult carries exported key material, a signature or the device id.
type ExportResult struct {
	Code   int32
	Data   []byte
	Length int32
}

type SessionResult struct {
	Code    int32
	Session uint64
}

func projectCode(res mo.Result[int32]) int32 {
	code, err := res.Get()
	if err != nil {
		return failureCode(err)
	}
	return code
}

func projectBool(res mo.Result[int32]) bool {
	code, err := res.Get()
	return err == nil && code == CodeOK
}
