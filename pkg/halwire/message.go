// Package halwire frames HAL calls for a stream transport.
//
// A frame is the command byte, a 16 byte request id, a big-endian 16 bit body
// length and a CBOR encoded body. Responses echo the command and the id of the
// request they answer, or use CmdError.
package halwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type Message struct {
	Command Command
	ID      uuid.UUID
	Data    []byte
}

// NewMessageWithEncMode encodes data with em as the CBOR body of a new frame.
// A nil data yields an empty body.
func NewMessageWithEncMode(em cbor.EncMode, cmd Command, id uuid.UUID, data any) (*Message, error) {
	msg := &Message{
		Command: cmd,
		ID:      id,
	}

	b := make([]byte, 0)
	var err error
	if data != nil {
		b, err = em.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	if len(b) > MaxBodySize {
		return nil, ErrMessageTooLarge
	}
	msg.Data = b

	return msg, nil
}

// ReadMessage reads exactly one frame.
func ReadMessage(r io.Reader) (*Message, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	id, err := uuid.FromBytes(header[1:17])
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(header[17:])

	data := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}

	return &Message{
		Command: Command(header[0]),
		ID:      id,
		Data:    data,
	}, nil
}

// WriteTo writes the frame with a single Write call so that concurrent
// writers on a shared connection never interleave partial frames.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	if len(m.Data) > MaxBodySize {
		return 0, ErrMessageTooLarge
	}

	frame := make([]byte, headerSize, headerSize+len(m.Data))
	frame[0] = byte(m.Command)
	copy(frame[1:17], m.ID[:])
	binary.BigEndian.PutUint16(frame[17:], uint16(len(m.Data)))
	frame = append(frame, m.Data...)

	n, err := w.Write(frame)
	return int64(n), err
}

// Decode unmarshals the body into v.
func (m *Message) Decode(v any) error {
	if err := cbor.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("cannot unmarshal %s body: %w", m.Command, err)
	}
	return nil
}

// Err converts a CmdError frame into a *RemoteError. Other frames yield nil.
func (m *Message) Err() error {
	if m.Command != CmdError {
		return nil
	}

	var resp ErrorResponse
	if err := m.Decode(&resp); err != nil {
		return err
	}

	return &RemoteError{
		Code:    resp.Code,
		Message: resp.Message,
	}
}
