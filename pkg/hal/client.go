package hal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/go-ctap/halbridge/pkg/halwire"
	"github.com/go-ctap/halbridge/pkg/options"
)

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Client speaks halwire over a single stream. It implements both Mlipay and
// Soter; which calls succeed depends on the HAL at the other end. Calls are
// serialized, one request in flight at a time.
type Client struct {
	logger  *slog.Logger
	encMode cbor.EncMode

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	closed bool
}

var (
	_ Mlipay = (*Client)(nil)
	_ Soter  = (*Client)(nil)
)

func NewClient(conn io.ReadWriteCloser, opts ...options.Option) *Client {
	oo := options.NewOptions(opts...)

	return &Client{
		logger:  oo.Logger,
		encMode: oo.EncMode,
		conn:    conn,
	}
}

// Close closes the underlying stream. Further calls fail with ErrClosed.
func (cl *Client) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return nil
	}
	cl.closed = true

	return cl.conn.Close()
}

func (cl *Client) call(ctx context.Context, cmd halwire.Command, req, resp any) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return ErrClosed
	}

	msg, err := halwire.NewMessageWithEncMode(cl.encMode, cmd, uuid.New(), req)
	if err != nil {
		return fmt.Errorf("cannot marshal %s request: %w", cmd, err)
	}
	cl.logger.Debug(cmd.String()+" request", "id", msg.ID, "hex", hex.EncodeToString(msg.Data))

	if d, ok := cl.conn.(deadliner); ok {
		defer func() {
			_ = d.SetDeadline(time.Time{})
		}()
		if deadline, ok := ctx.Deadline(); ok {
			_ = d.SetDeadline(deadline)
		}
		stop := context.AfterFunc(ctx, func() {
			// Unblock pending I/O.
			_ = d.SetDeadline(time.Unix(1, 0))
		})
		defer stop()
	}

	if _, err := msg.WriteTo(cl.conn); err != nil {
		return cl.broken(ctx, err)
	}

	respMsg, err := halwire.ReadMessage(cl.conn)
	if err != nil {
		return cl.broken(ctx, err)
	}
	cl.logger.Debug(cmd.String()+" response", "id", respMsg.ID, "hex", hex.EncodeToString(respMsg.Data))

	if respMsg.ID != msg.ID {
		return cl.broken(ctx, halwire.ErrUnexpectedID)
	}

	switch respMsg.Command {
	case cmd:
		return respMsg.Decode(resp)
	case halwire.CmdError:
		return respMsg.Err()
	default:
		return cl.broken(ctx, fmt.Errorf("%w: %s in answer to %s", halwire.ErrUnexpectedCommand, respMsg.Command, cmd))
	}
}

// broken closes the stream after a transport failure. The caller holds mu.
func (cl *Client) broken(ctx context.Context, err error) error {
	cl.closed = true
	_ = cl.conn.Close()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Join(err, ctxErr)
	}

	return fmt.Errorf("%w: %w", ErrDisconnected, err)
}

func (cl *Client) InvokeCommand(ctx context.Context, param []byte) ([]byte, error) {
	var resp halwire.InvokeCommandResponse
	if err := cl.call(ctx, halwire.CmdInvokeCommand, &halwire.InvokeCommandRequest{Param: param}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (cl *Client) IfaaGetIDList(ctx context.Context, bioType int32) ([]int32, error) {
	var resp halwire.IDListResponse
	if err := cl.call(ctx, halwire.CmdIfaaGetIDList, &halwire.IDListRequest{BioType: bioType}, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func (cl *Client) code(ctx context.Context, cmd halwire.Command, req any) (int32, error) {
	var resp halwire.CodeResponse
	if err := cl.call(ctx, cmd, req, &resp); err != nil {
		return 0, err
	}
	return resp.Code, nil
}

func (cl *Client) export(ctx context.Context, cmd halwire.Command, req any) (*ExportResult, error) {
	var resp halwire.DataResponse
	if err := cl.call(ctx, cmd, req, &resp); err != nil {
		return nil, err
	}

	return &ExportResult{
		Code:   resp.Code,
		Data:   resp.Data,
		Length: resp.Length,
	}, nil
}

func (cl *Client) GenerateAskKeyPair(ctx context.Context, uid uint32) (int32, error) {
	return cl.code(ctx, halwire.CmdGenerateAskKeyPair, &halwire.KeyRequest{UID: uid})
}

func (cl *Client) ExportAskPublicKey(ctx context.Context, uid uint32) (*ExportResult, error) {
	return cl.export(ctx, halwire.CmdExportAskPublicKey, &halwire.KeyRequest{UID: uid})
}

func (cl *Client) HasAskAlready(ctx context.Context, uid uint32) (int32, error) {
	return cl.code(ctx, halwire.CmdHasAskAlready, &halwire.KeyRequest{UID: uid})
}

func (cl *Client) GenerateAuthKeyPair(ctx context.Context, uid uint32, name string) (int32, error) {
	return cl.code(ctx, halwire.CmdGenerateAuthKeyPair, &halwire.KeyRequest{UID: uid, Name: name})
}

func (cl *Client) ExportAuthKeyPublicKey(ctx context.Context, uid uint32, name string) (*ExportResult, error) {
	return cl.export(ctx, halwire.CmdExportAuthKeyPublicKey, &halwire.KeyRequest{UID: uid, Name: name})
}

func (cl *Client) RemoveAuthKey(ctx context.Context, uid uint32, name string) (int32, error) {
	return cl.code(ctx, halwire.CmdRemoveAuthKey, &halwire.KeyRequest{UID: uid, Name: name})
}

func (cl *Client) HasAuthKey(ctx context.Context, uid uint32, name string) (int32, error) {
	return cl.code(ctx, halwire.CmdHasAuthKey, &halwire.KeyRequest{UID: uid, Name: name})
}

func (cl *Client) RemoveAllUIDKey(ctx context.Context, uid uint32) (int32, error) {
	return cl.code(ctx, halwire.CmdRemoveAllUIDKey, &halwire.KeyRequest{UID: uid})
}

func (cl *Client) InitSign(ctx context.Context, uid uint32, name, challenge string) (*SessionResult, error) {
	var resp halwire.SessionResponse
	req := &halwire.InitSignRequest{
		UID:       uid,
		Name:      name,
		Challenge: challenge,
	}
	if err := cl.call(ctx, halwire.CmdInitSign, req, &resp); err != nil {
		return nil, err
	}

	return &SessionResult{
		Code:    resp.Code,
		Session: resp.Session,
	}, nil
}

func (cl *Client) FinishSign(ctx context.Context, session uint64) (*ExportResult, error) {
	return cl.export(ctx, halwire.CmdFinishSign, &halwire.FinishSignRequest{Session: session})
}

func (cl *Client) GetDeviceID(ctx context.Context) (*ExportResult, error) {
	return cl.export(ctx, halwire.CmdGetDeviceID, &halwire.Empty{})
}
