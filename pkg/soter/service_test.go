package soter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ctap/halbridge/internal/softhal"
	"github.com/go-ctap/halbridge/pkg/hal"
)

const uid = 10086

func TestEmptyArgumentsSkipHAL(t *testing.T) {
	ctx := context.Background()
	f := &fakeSoter{}
	s := NewService(static(f))

	assert.Equal(t, CodeKeyNameEmpty, s.GenerateAuthKey(ctx, uid, ""))
	assert.Equal(t, CodeKeyNameEmpty, s.RemoveAuthKey(ctx, uid, ""))
	assert.Equal(t, ExportResult{Code: CodeKeyNameEmpty}, s.GetAuthKey(ctx, uid, ""))
	assert.False(t, s.HasAuthKey(ctx, uid, ""))
	assert.Equal(t, SessionResult{Code: CodeKeyNameEmpty}, s.BeginSigningSession(ctx, uid, "", "challenge"))
	assert.Equal(t, SessionResult{Code: CodeKeyNameEmpty}, s.BeginSigningSession(ctx, uid, "", ""))
	assert.Equal(t, SessionResult{Code: CodeChallengeEmpty}, s.BeginSigningSession(ctx, uid, "pay", ""))
	assert.Equal(t, ExportResult{Code: CodeSessionInvalid}, s.FinishSigningSession(ctx, 0))

	assert.Empty(t, f.Calls())
}

func TestFailureCodes(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name        string
		unavailable any
		failed      any
		run         func(s *Service) any
	}{
		{
			name:        "GenerateAppKey",
			unavailable: CodeFailed,
			failed:      CodeFailed,
			run:         func(s *Service) any { return s.GenerateAppKey(ctx, uid) },
		},
		{
			name:        "GetAppKey",
			unavailable: ExportResult{Code: CodeUnavailable},
			failed:      ExportResult{Code: CodeFailed},
			run:         func(s *Service) any { return s.GetAppKey(ctx, uid) },
		},
		{
			name:        "HasAppKey",
			unavailable: false,
			failed:      false,
			run:         func(s *Service) any { return s.HasAppKey(ctx, uid) },
		},
		{
			name:        "GenerateAuthKey",
			unavailable: CodeFailed,
			failed:      CodeFailed,
			run:         func(s *Service) any { return s.GenerateAuthKey(ctx, uid, "pay") },
		},
		{
			name:        "RemoveAuthKey",
			unavailable: CodeFailed,
			failed:      CodeFailed,
			run:         func(s *Service) any { return s.RemoveAuthKey(ctx, uid, "pay") },
		},
		{
			name:        "GetAuthKey",
			unavailable: ExportResult{Code: CodeUnavailable},
			failed:      ExportResult{Code: CodeUnavailable},
			run:         func(s *Service) any { return s.GetAuthKey(ctx, uid, "pay") },
		},
		{
			name:        "RemoveAllAuthKeys",
			unavailable: CodeFailed,
			failed:      CodeFailed,
			run:         func(s *Service) any { return s.RemoveAllAuthKeys(ctx, uid) },
		},
		{
			name:        "HasAuthKey",
			unavailable: false,
			failed:      false,
			run:         func(s *Service) any { return s.HasAuthKey(ctx, uid, "pay") },
		},
		{
			name:        "BeginSigningSession",
			unavailable: SessionResult{Code: CodeFailed},
			failed:      SessionResult{Code: CodeFailed},
			run:         func(s *Service) any { return s.BeginSigningSession(ctx, uid, "pay", "challenge") },
		},
		{
			name:        "FinishSigningSession",
			unavailable: ExportResult{Code: CodeFailed},
			failed:      ExportResult{Code: CodeFailed},
			run:         func(s *Service) any { return s.FinishSigningSession(ctx, 1) },
		},
		{
			name:        "DeviceID",
			unavailable: ExportResult{Code: CodeFailed},
			failed:      ExportResult{Code: CodeFailed},
			run:         func(s *Service) any { return s.DeviceID(ctx) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.unavailable, tc.run(NewService(unavailable())), "unavailable")
			assert.Equal(t, tc.unavailable, tc.run(NewService(nil)), "not configured")

			f := &fakeSoter{err: errors.New("transaction failed")}
			assert.Equal(t, tc.failed, tc.run(NewService(static(f))), "call failed")
			assert.Len(t, f.Calls(), 1)
		})
	}
}

func TestHALCodesPassThrough(t *testing.T) {
	ctx := context.Background()
	f := &fakeSoter{code: 3, data: []byte{1, 2}}
	s := NewService(static(f))

	assert.EqualValues(t, 3, s.GenerateAppKey(ctx, uid))
	assert.EqualValues(t, 3, s.GenerateAuthKey(ctx, uid, "pay"))
	assert.EqualValues(t, 3, s.RemoveAuthKey(ctx, uid, "pay"))
	assert.EqualValues(t, 3, s.RemoveAllAuthKeys(ctx, uid))
	assert.Equal(t, ExportResult{Code: 3, Data: []byte{1, 2}, Length: 2}, s.GetAppKey(ctx, uid))
	assert.Equal(t, SessionResult{Code: 3, Session: 77}, s.BeginSigningSession(ctx, uid, "pay", "challenge"))

	// Has* only report true for code 0.
	assert.False(t, s.HasAppKey(ctx, uid))
	assert.False(t, s.HasAuthKey(ctx, uid, "pay"))

	f.code = CodeOK
	assert.True(t, s.HasAppKey(ctx, uid))
	assert.True(t, s.HasAuthKey(ctx, uid, "pay"))

	for _, u := range f.uids {
		assert.EqualValues(t, uid, u)
	}
}

func TestEmptyDataIsNil(t *testing.T) {
	f := &fakeSoter{data: []byte{}}
	s := NewService(static(f))

	res := s.DeviceID(context.Background())
	assert.Equal(t, CodeOK, res.Code)
	assert.Nil(t, res.Data)
}

func TestDisconnectResetsHandle(t *testing.T) {
	ctx := context.Background()

	var opened int
	f := &fakeSoter{err: hal.ErrDisconnected}
	h := hal.NewHandle("soter", func(context.Context) (hal.Soter, error) {
		opened++
		return f, nil
	}, nil)
	s := NewService(h)

	assert.Equal(t, CodeFailed, s.GenerateAppKey(ctx, uid))
	assert.Equal(t, CodeFailed, s.GenerateAppKey(ctx, uid))
	assert.Equal(t, 2, opened)
}

func TestSoftHAL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	soft := softhal.New([]byte("seed"))
	cl := soft.Pipe(ctx)
	defer cl.Close()

	s := NewService(hal.Static[hal.Soter]("soter", cl))

	assert.False(t, s.HasAppKey(ctx, uid))
	assert.Equal(t, CodeOK, s.GenerateAppKey(ctx, uid))
	assert.True(t, s.HasAppKey(ctx, uid))

	ask := s.GetAppKey(ctx, uid)
	assert.Equal(t, CodeOK, ask.Code)
	assert.EqualValues(t, len(ask.Data), ask.Length)

	assert.Equal(t, CodeOK, s.GenerateAuthKey(ctx, uid, "pay"))
	assert.True(t, s.HasAuthKey(ctx, uid, "pay"))
	assert.False(t, s.HasAuthKey(ctx, uid+1, "pay"))

	missing := s.GetAuthKey(ctx, uid, "missing")
	assert.Equal(t, softhal.CodeNotFound, missing.Code)
	assert.Nil(t, missing.Data)

	sess := s.BeginSigningSession(ctx, uid, "pay", "challenge")
	require.Equal(t, CodeOK, sess.Code)
	require.NotZero(t, sess.Session)

	sig := s.FinishSigningSession(ctx, sess.Session)
	assert.Equal(t, CodeOK, sig.Code)
	assert.NotEmpty(t, sig.Data)

	assert.Equal(t, CodeSessionInvalid, s.FinishSigningSession(ctx, sess.Session).Code)

	id := s.DeviceID(ctx)
	assert.Equal(t, CodeOK, id.Code)
	assert.Len(t, id.Data, 16)

	assert.Equal(t, CodeOK, s.RemoveAuthKey(ctx, uid, "pay"))
	assert.Equal(t, CodeOK, s.RemoveAllAuthKeys(ctx, uid))
	assert.Zero(t, soft.KeyCount(uid))
	assert.EqualValues(t, 1, s.Version())
}

func TestFailureUnwrap(t *testing.T) {
	res := invalid[int32](CodeKeyNameEmpty, ErrKeyNameEmpty)

	_, err := res.Get()
	require.ErrorIs(t, err, ErrKeyNameEmpty)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonInvalidArgument, f.Reason)
	assert.Equal(t, "invalid argument", f.Reason.String())
	assert.Equal(t, CodeKeyNameEmpty, failureCode(err))
	assert.Equal(t, CodeFailed, failureCode(errors.New("other")))
}
