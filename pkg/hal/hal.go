// Package hal defines the vendor HAL channels used by the services and a
// client that reaches them over a halwire stream.
package hal

import (
	"context"
)

// Mlipay is the payment/fingerprint HAL (vendor.xiaomi.hardware.mlipay).
type Mlipay interface {
	// InvokeCommand passes an opaque IFAA command to the TA and returns its
	// opaque answer.
	InvokeCommand(ctx context.Context, param []byte) ([]byte, error)

	// IfaaGetIDList lists enrolled template ids of a biometric type.
	IfaaGetIDList(ctx context.Context, bioType int32) ([]int32, error)
}

// Soter is the secure element HAL (vendor.qti.hardware.soter). Every key is
// scoped to a UID; the app secure key (ASK) exists at most once per UID.
type Soter interface {
	GenerateAskKeyPair(ctx context.Context, uid uint32) (int32, error)
	ExportAskPublicKey(ctx context.Context, uid uint32) (*ExportResult, error)
	HasAskAlready(ctx context.Context, uid uint32) (int32, error)

	GenerateAuthKeyPair(ctx context.Context, uid uint32, name string) (int32, error)
	ExportAuthKeyPublicKey(ctx context.Context, uid uint32, name string) (*ExportResult, error)
	RemoveAuthKey(ctx context.Context, uid uint32, name string) (int32, error)
	HasAuthKey(ctx context.Context, uid uint32, name string) (int32, error)

	// RemoveAllUIDKey drops the ASK and every auth key of uid.
	RemoveAllUIDKey(ctx context.Context, uid uint32) (int32, error)

	InitSign(ctx context.Context, uid uint32, name, challenge string) (*SessionResult, error)
	FinishSign(ctx context.Context, session uint64) (*ExportResult, error)

	GetDeviceID(ctx context.Context) (*ExportResult, error)
}

// ExportResult is what the HAL reports for calls producing a buffer.
type ExportResult struct {
	Code   int32
	Data   []byte
	Length int32
}

// SessionResult is the answer to InitSign. Session 0 means no session.
type SessionResult struct {
	Code    int32
	Session uint64
}
