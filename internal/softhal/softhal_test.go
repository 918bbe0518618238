package softhal

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publicKey(t *testing.T, b []byte) *ecdsa.PublicKey {
	t.Helper()

	var coseKey map[int]any
	require.NoError(t, cbor.Unmarshal(b, &coseKey))

	assert.EqualValues(t, 2, coseKey[1], "kty")
	assert.EqualValues(t, -7, coseKey[3], "alg")
	assert.EqualValues(t, 1, coseKey[-1], "crv")
	assert.NotContains(t, coseKey, 2, "kid")

	x, ok := coseKey[-2].([]byte)
	require.True(t, ok)
	y, ok := coseKey[-3].([]byte)
	require.True(t, ok)

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
}

func TestAskLifecycle(t *testing.T) {
	ctx := context.Background()
	h := New([]byte("seed"))

	code, err := h.HasAskAlready(ctx, 10086)
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, code)

	res, err := h.ExportAskPublicKey(ctx, 10086)
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, res.Code)

	code, err = h.GenerateAskKeyPair(ctx, 10086)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)

	code, err = h.HasAskAlready(ctx, 10086)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)

	res, err = h.ExportAskPublicKey(ctx, 10086)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, res.Code)
	assert.EqualValues(t, len(res.Data), res.Length)
	publicKey(t, res.Data)
}

func TestAuthKeyRequiresAsk(t *testing.T) {
	ctx := context.Background()
	h := New(nil)

	code, err := h.GenerateAuthKeyPair(ctx, 1, "pay")
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, code)
	assert.Equal(t, 0, h.KeyCount(1))
}

func TestSigningSession(t *testing.T) {
	ctx := context.Background()
	h := New(nil)

	_, err := h.GenerateAskKeyPair(ctx, 1)
	require.NoError(t, err)
	code, err := h.GenerateAuthKeyPair(ctx, 1, "pay")
	require.NoError(t, err)
	require.Equal(t, CodeOK, code)

	exported, err := h.ExportAuthKeyPublicKey(ctx, 1, "pay")
	require.NoError(t, err)
	pub := publicKey(t, exported.Data)

	sess, err := h.InitSign(ctx, 1, "pay", "challenge")
	require.NoError(t, err)
	require.Equal(t, CodeOK, sess.Code)
	assert.NotZero(t, sess.Session)

	res, err := h.FinishSign(ctx, sess.Session)
	require.NoError(t, err)
	require.Equal(t, CodeOK, res.Code)

	digest := sha256.Sum256([]byte("challenge"))
	assert.True(t, ecdsa.VerifyASN1(pub, digest[:], res.Data))

	// Sessions are single use.
	res, err = h.FinishSign(ctx, sess.Session)
	require.NoError(t, err)
	assert.Equal(t, CodeSessionInvalid, res.Code)
}

func TestInitSignUnknownKey(t *testing.T) {
	h := New(nil)

	sess, err := h.InitSign(context.Background(), 1, "missing", "challenge")
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, sess.Code)
	assert.Zero(t, sess.Session)
}

func TestRemoveKeys(t *testing.T) {
	ctx := context.Background()
	h := New(nil)

	for _, uid := range []uint32{1, 2} {
		_, err := h.GenerateAskKeyPair(ctx, uid)
		require.NoError(t, err)
		_, err = h.GenerateAuthKeyPair(ctx, uid, "a")
		require.NoError(t, err)
		_, err = h.GenerateAuthKeyPair(ctx, uid, "b")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, h.KeyCount(1))

	code, err := h.RemoveAuthKey(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)

	code, err = h.RemoveAuthKey(ctx, 1, "a")
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, code)

	code, err = h.HasAuthKey(ctx, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)

	code, err = h.RemoveAllUIDKey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)

	assert.Equal(t, 0, h.KeyCount(1))
	assert.Equal(t, 3, h.KeyCount(2))
}

func TestDeviceID(t *testing.T) {
	ctx := context.Background()

	a, err := New([]byte("one")).GetDeviceID(ctx)
	require.NoError(t, err)
	again, err := New([]byte("one")).GetDeviceID(ctx)
	require.NoError(t, err)
	b, err := New([]byte("two")).GetDeviceID(ctx)
	require.NoError(t, err)

	assert.Len(t, a.Data, 16)
	assert.EqualValues(t, 16, a.Length)
	assert.Equal(t, a.Data, again.Data)
	assert.NotEqual(t, a.Data, b.Data)
}

func TestMlipay(t *testing.T) {
	ctx := context.Background()
	h := New(nil)

	out, err := h.InvokeCommand(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out)

	h.SetCommandFunc(func(param []byte) ([]byte, error) {
		return append([]byte{0xff}, param...), nil
	})
	out, err = h.InvokeCommand(ctx, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 1}, out)

	ids, err := h.IfaaGetIDList(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, ids)

	h.SetIDList(4, 7, 9)
	ids, err = h.IfaaGetIDList(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 9}, ids)
}
