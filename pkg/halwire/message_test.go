package halwire

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

var encMode, _ = cbor.CTAP2EncOptions().EncMode()

func newMessage(cmd Command, id uuid.UUID, data any) (*Message, error) {
	return NewMessageWithEncMode(encMode, cmd, id, data)
}

func TestMessageLayout(t *testing.T) {
	msg, err := newMessage(CmdHasAuthKey, fixedID, &KeyRequest{UID: 10086, Name: "pay"})
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	n, err := msg.WriteTo(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	b := buf.Bytes()
	assert.Equal(t, byte(CmdHasAuthKey), b[0])
	assert.Equal(t, fixedID[:], b[1:17])
	assert.Equal(t, len(b)-headerSize, int(b[17])<<8|int(b[18]))

	// {1: 10086, 2: "pay"} in canonical CBOR
	assert.Equal(t, "a2011927660263706179", hex.EncodeToString(b[headerSize:]))
}

func TestReadMessage(t *testing.T) {
	msg, err := newMessage(CmdFinishSign, fixedID, &DataResponse{Code: 0, Data: []byte{1, 2, 3}, Length: 3})
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	_, err = msg.WriteTo(buf)
	require.NoError(t, err)

	read, err := ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, CmdFinishSign, read.Command)
	assert.Equal(t, fixedID, read.ID)

	var resp DataResponse
	require.NoError(t, read.Decode(&resp))
	assert.Equal(t, []byte{1, 2, 3}, resp.Data)
	assert.Equal(t, int32(3), resp.Length)
	assert.NoError(t, read.Err())
}

func TestReadMessageTruncated(t *testing.T) {
	msg, err := newMessage(CmdInvokeCommand, fixedID, &InvokeCommandRequest{Param: []byte("hello")})
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	_, err = msg.WriteTo(buf)
	require.NoError(t, err)

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err = ReadMessage(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadMessage(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestEmptyBody(t *testing.T) {
	msg, err := newMessage(CmdGetDeviceID, fixedID, nil)
	require.NoError(t, err)
	assert.Empty(t, msg.Data)

	buf := bytes.NewBuffer(nil)
	n, err := msg.WriteTo(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(headerSize), n)
}

func TestMessageTooLarge(t *testing.T) {
	_, err := newMessage(CmdInvokeCommand, fixedID, &InvokeCommandRequest{Param: make([]byte, MaxBodySize)})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestRemoteError(t *testing.T) {
	msg, err := newMessage(CmdError, fixedID, &ErrorResponse{Code: ErrorCodeUnknownCommand, Message: "0x55"})
	require.NoError(t, err)

	var remote *RemoteError
	require.ErrorAs(t, msg.Err(), &remote)
	assert.Equal(t, ErrorCodeUnknownCommand, remote.Code)
	assert.Equal(t, "halwire: remote error ERR_UNKNOWN_COMMAND (0x55)", remote.Error())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "InitSign", CmdInitSign.String())
	assert.Equal(t, "Command(0x55)", Command(0x55).String())
}
