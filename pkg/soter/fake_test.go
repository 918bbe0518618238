package soter

import (
	"context"
	"errors"
	"sync"

	"github.com/go-ctap/halbridge/pkg/hal"
)

// fakeSoter answers every call with code and err and records the calls.
type fakeSoter struct {
	code int32
	data []byte
	err  error

	mu    sync.Mutex
	calls []string
	uids  []uint32
}

func (f *fakeSoter) record(name string, uid uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, name)
	f.uids = append(f.uids, uid)
}

func (f *fakeSoter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeSoter) codeResult() (int32, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.code, nil
}

func (f *fakeSoter) exportResult() (*hal.ExportResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &hal.ExportResult{Code: f.code, Data: f.data, Length: int32(len(f.data))}, nil
}

func (f *fakeSoter) GenerateAskKeyPair(_ context.Context, uid uint32) (int32, error) {
	f.record("GenerateAskKeyPair", uid)
	return f.codeResult()
}

func (f *fakeSoter) ExportAskPublicKey(_ context.Context, uid uint32) (*hal.ExportResult, error) {
	f.record("ExportAskPublicKey", uid)
	return f.exportResult()
}

func (f *fakeSoter) HasAskAlready(_ context.Context, uid uint32) (int32, error) {
	f.record("HasAskAlready", uid)
	return f.codeResult()
}

func (f *fakeSoter) GenerateAuthKeyPair(_ context.Context, uid uint32, _ string) (int32, error) {
	f.record("GenerateAuthKeyPair", uid)
	return f.codeResult()
}

func (f *fakeSoter) ExportAuthKeyPublicKey(_ context.Context, uid uint32, _ string) (*hal.ExportResult, error) {
	f.record("ExportAuthKeyPublicKey", uid)
	return f.exportResult()
}

func (f *fakeSoter) RemoveAuthKey(_ context.Context, uid uint32, _ string) (int32, error) {
	f.record("RemoveAuthKey", uid)
	return f.codeResult()
}

func (f *fakeSoter) HasAuthKey(_ context.Context, uid uint32, _ string) (int32, error) {
	f.record("HasAuthKey", uid)
	return f.codeResult()
}

func (f *fakeSoter) RemoveAllUIDKey(_ context.Context, uid uint32) (int32, error) {
	f.record("RemoveAllUIDKey", uid)
	return f.codeResult()
}

func (f *fakeSoter) InitSign(_ context.Context, uid uint32, _, _ string) (*hal.SessionResult, error) {
	f.record("InitSign", uid)
	if f.err != nil {
		return nil, f.err
	}
	return &hal.SessionResult{Code: f.code, Session: 77}, nil
}

func (f *fakeSoter) FinishSign(context.Context, uint64) (*hal.ExportResult, error) {
	f.record("FinishSign", 0)
	return f.exportResult()
}

func (f *fakeSoter) GetDeviceID(context.Context) (*hal.ExportResult, error) {
	f.record("GetDeviceID", 0)
	return f.exportResult()
}

func static(f *fakeSoter) *hal.Handle[hal.Soter] {
	return hal.Static[hal.Soter]("soter", f)
}

func unavailable() *hal.Handle[hal.Soter] {
	return hal.NewHandle("soter", func(context.Context) (hal.Soter, error) {
		return nil, errors.New("no such service")
	}, nil)
}
