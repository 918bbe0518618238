// Package soter implements the Soter key manager: per-UID key lifecycle and
// signing sessions backed by the secure element HAL.
//
// Every operation takes the UID of the calling process, which the transport
// attributes. Failures are tracked as *Failure values and reduced to the
// legacy result codes only in the returned values.
package soter

import (
	"context"
	"log/slog"

	"github.com/samber/mo"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/options"
)

type Service struct {
	logger *slog.Logger
	soter  *hal.Handle[hal.Soter]
}

func NewService(soter *hal.Handle[hal.Soter], opts ...options.Option) *Service {
	oo := options.NewOptions(opts...)

	return &Service{
		logger: oo.Logger,
		soter:  soter,
	}
}

// call runs fn against the HAL and tags the failure with the codes of op.
func call[T any](ctx context.Context, s *Service, op string, codes failureCodes, fn func(hal.Soter) (T, error)) mo.Result[T] {
	if s.soter == nil {
		s.logger.Error("soter HAL is not configured", "op", op)
		return mo.Err[T](&Failure{Reason: ReasonUnavailable, Code: codes.unavailable, Err: hal.ErrUnavailable})
	}

	h, err := s.soter.Get(ctx).Get()
	if err != nil {
		s.logger.Error("soter HAL is unavailable", "op", op, "error", err)
		return mo.Err[T](&Failure{Reason: ReasonUnavailable, Code: codes.unavailable, Err: err})
	}

	v, err := fn(h)
	if err != nil {
		s.soter.Observe(err)
		s.logger.Error("soter HAL call failed", "op", op, "error", err)
		return mo.Err[T](&Failure{Reason: ReasonRemote, Code: codes.failed, Err: err})
	}

	return mo.Ok(v)
}

func projectExport(res mo.Result[*hal.ExportResult]) ExportResult {
	r, err := res.Get()
	if err != nil {
		return ExportResult{Code: failureCode(err)}
	}

	out := ExportResult{
		Code:   r.Code,
		Length: r.Length,
	}
	if len(r.Data) > 0 {
		out.Data = r.Data
	}
	return out
}

func projectSession(res mo.Result[*hal.SessionResult]) SessionResult {
	r, err := res.Get()
	if err != nil {
		return SessionResult{Code: failureCode(err)}
	}

	return SessionResult{
		Code:    r.Code,
		Session: r.Session,
	}
}

// GenerateAppKey creates the app secure key (ASK) of uid.
func (s *Service) GenerateAppKey(ctx context.Context, uid uint32) int32 {
	return projectCode(call(ctx, s, "generateAskKeyPair", failedCodes, func(h hal.Soter) (int32, error) {
		return h.GenerateAskKeyPair(ctx, uid)
	}))
}

// GetAppKey exports the public half of the ASK of uid.
func (s *Service) GetAppKey(ctx context.Context, uid uint32) ExportResult {
	return projectExport(call(ctx, s, "exportAskPublicKey", exportAskCodes, func(h hal.Soter) (*hal.ExportResult, error) {
		return h.ExportAskPublicKey(ctx, uid)
	}))
}

// HasAppKey reports false both for a missing ASK and for any failure.
func (s *Service) HasAppKey(ctx context.Context, uid uint32) bool {
	return projectBool(call(ctx, s, "hasAskAlready", failedCodes, func(h hal.Soter) (int32, error) {
		return h.HasAskAlready(ctx, uid)
	}))
}

func (s *Service) GenerateAuthKey(ctx context.Context, uid uint32, name string) int32 {
	if name == "" {
		return projectCode(invalid[int32](CodeKeyNameEmpty, ErrKeyNameEmpty))
	}

	return projectCode(call(ctx, s, "generateAuthKeyPair", failedCodes, func(h hal.Soter) (int32, error) {
		return h.GenerateAuthKeyPair(ctx, uid, name)
	}))
}

func (s *Service) RemoveAuthKey(ctx context.Context, uid uint32, name string) int32 {
	if name == "" {
		return projectCode(invalid[int32](CodeKeyNameEmpty, ErrKeyNameEmpty))
	}

	return projectCode(call(ctx, s, "removeAuthKey", failedCodes, func(h hal.Soter) (int32, error) {
		return h.RemoveAuthKey(ctx, uid, name)
	}))
}

func (s *Service) GetAuthKey(ctx context.Context, uid uint32, name string) ExportResult {
	if name == "" {
		return projectExport(invalid[*hal.ExportResult](CodeKeyNameEmpty, ErrKeyNameEmpty))
	}

	return projectExport(call(ctx, s, "exportAuthKeyPublicKey", unavailableCodes, func(h hal.Soter) (*hal.ExportResult, error) {
		return h.ExportAuthKeyPublicKey(ctx, uid, name)
	}))
}

// RemoveAllAuthKeys removes every key of uid, the ASK included.
func (s *Service) RemoveAllAuthKeys(ctx context.Context, uid uint32) int32 {
	return projectCode(call(ctx, s, "removeAllUidKey", failedCodes, func(h hal.Soter) (int32, error) {
		return h.RemoveAllUIDKey(ctx, uid)
	}))
}

func (s *Service) HasAuthKey(ctx context.Context, uid uint32, name string) bool {
	if name == "" {
		s.logger.Debug("hasAuthKey without key name", "uid", uid)
		return false
	}

	return projectBool(call(ctx, s, "hasAuthKey", failedCodes, func(h hal.Soter) (int32, error) {
		return h.HasAuthKey(ctx, uid, name)
	}))
}

// BeginSigningSession prepares signing challenge with the auth key name.
func (s *Service) BeginSigningSession(ctx context.Context, uid uint32, name, challenge string) SessionResult {
	switch {
	case name == "":
		return projectSession(invalid[*hal.SessionResult](CodeKeyNameEmpty, ErrKeyNameEmpty))
	case challenge == "":
		return projectSession(invalid[*hal.SessionResult](CodeChallengeEmpty, ErrChallengeEmpty))
	}

	return projectSession(call(ctx, s, "initSign", failedCodes, func(h hal.Soter) (*hal.SessionResult, error) {
		return h.InitSign(ctx, uid, name, challenge)
	}))
}

// FinishSigningSession returns the signature of a session. The zero session
// is rejected without asking the HAL.
func (s *Service) FinishSigningSession(ctx context.Context, session uint64) ExportResult {
	if session == 0 {
		return projectExport(invalid[*hal.ExportResult](CodeSessionInvalid, ErrSessionInvalid))
	}

	return projectExport(call(ctx, s, "finishSign", failedCodes, func(h hal.Soter) (*hal.ExportResult, error) {
		return h.FinishSign(ctx, session)
	}))
}

func (s *Service) DeviceID(ctx context.Context) ExportResult {
	return projectExport(call(ctx, s, "getDeviceId", failedCodes, func(h hal.Soter) (*hal.ExportResult, error) {
		return h.GetDeviceID(ctx)
	}))
}

func (s *Service) Version() int32 {
	return Version
}
