package softhal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/halwire"
	"github.com/go-ctap/halbridge/pkg/options"
)

// Serve answers halwire requests on every connection accepted from l until
// ctx is done or l fails.
func (h *HAL) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = l.Close()
	})
	defer stop()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		go func() {
			if err := h.ServeConn(ctx, conn); err != nil {
				h.logger.Warn("soft HAL connection failed", "error", err)
			}
		}()
	}
}

// ServeConn answers requests on a single stream until it is closed.
func (h *HAL) ServeConn(ctx context.Context, conn io.ReadWriteCloser) error {
	defer func() {
		_ = conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		req, err := halwire.ReadMessage(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		resp, err := h.dispatch(ctx, req)
		if err != nil {
			resp, err = h.errorMessage(req, err)
			if err != nil {
				return err
			}
		}

		if _, err := resp.WriteTo(conn); err != nil {
			return err
		}
	}
}

// Pipe connects a new hal.Client to h over an in-process pipe.
func (h *HAL) Pipe(ctx context.Context, opts ...options.Option) *hal.Client {
	client, server := net.Pipe()

	go func() {
		if err := h.ServeConn(ctx, server); err != nil {
			h.logger.Warn("soft HAL pipe failed", "error", err)
		}
	}()

	return hal.NewClient(client, opts...)
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func decode(req *halwire.Message, v any) error {
	if err := req.Decode(v); err != nil {
		return &badRequestError{err}
	}
	return nil
}

func (h *HAL) dispatch(ctx context.Context, req *halwire.Message) (*halwire.Message, error) {
	var resp any

	switch req.Command {
	case halwire.CmdInvokeCommand:
		var body halwire.InvokeCommandRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		data, err := h.InvokeCommand(ctx, body.Param)
		if err != nil {
			return nil, err
		}
		resp = &halwire.InvokeCommandResponse{Data: data}

	case halwire.CmdIfaaGetIDList:
		var body halwire.IDListRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		ids, err := h.IfaaGetIDList(ctx, body.BioType)
		if err != nil {
			return nil, err
		}
		resp = &halwire.IDListResponse{IDs: ids}

	case halwire.CmdGenerateAskKeyPair, halwire.CmdHasAskAlready, halwire.CmdRemoveAllUIDKey,
		halwire.CmdGenerateAuthKeyPair, halwire.CmdRemoveAuthKey, halwire.CmdHasAuthKey:
		var body halwire.KeyRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		code, err := h.codeCall(ctx, req.Command, body)
		if err != nil {
			return nil, err
		}
		resp = &halwire.CodeResponse{Code: code}

	case halwire.CmdExportAskPublicKey, halwire.CmdExportAuthKeyPublicKey:
		var body halwire.KeyRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		var (
			res *hal.ExportResult
			err error
		)
		if req.Command == halwire.CmdExportAskPublicKey {
			res, err = h.ExportAskPublicKey(ctx, body.UID)
		} else {
			res, err = h.ExportAuthKeyPublicKey(ctx, body.UID, body.Name)
		}
		if err != nil {
			return nil, err
		}
		resp = dataResponse(res)

	case halwire.CmdInitSign:
		var body halwire.InitSignRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		res, err := h.InitSign(ctx, body.UID, body.Name, body.Challenge)
		if err != nil {
			return nil, err
		}
		resp = &halwire.SessionResponse{Code: res.Code, Session: res.Session}

	case halwire.CmdFinishSign:
		var body halwire.FinishSignRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		res, err := h.FinishSign(ctx, body.Session)
		if err != nil {
			return nil, err
		}
		resp = dataResponse(res)

	case halwire.CmdGetDeviceID:
		res, err := h.GetDeviceID(ctx)
		if err != nil {
			return nil, err
		}
		resp = dataResponse(res)

	default:
		return nil, &unknownCommandError{req.Command}
	}

	return halwire.NewMessageWithEncMode(h.encMode, req.Command, req.ID, resp)
}

func (h *HAL) codeCall(ctx context.Context, cmd halwire.Command, body halwire.KeyRequest) (int32, error) {
	switch cmd {
	case halwire.CmdGenerateAskKeyPair:
		return h.GenerateAskKeyPair(ctx, body.UID)
	case halwire.CmdHasAskAlready:
		return h.HasAskAlready(ctx, body.UID)
	case halwire.CmdRemoveAllUIDKey:
		return h.RemoveAllUIDKey(ctx, body.UID)
	case halwire.CmdGenerateAuthKeyPair:
		return h.GenerateAuthKeyPair(ctx, body.UID, body.Name)
	case halwire.CmdRemoveAuthKey:
		return h.RemoveAuthKey(ctx, body.UID, body.Name)
	default:
		return h.HasAuthKey(ctx, body.UID, body.Name)
	}
}

func dataResponse(res *hal.ExportResult) *halwire.DataResponse {
	return &halwire.DataResponse{
		Code:   res.Code,
		Data:   res.Data,
		Length: res.Length,
	}
}

type unknownCommandError struct {
	cmd halwire.Command
}

func (e *unknownCommandError) Error() string {
	return fmt.Sprintf("unknown command 0x%02x", byte(e.cmd))
}

func (h *HAL) errorMessage(req *halwire.Message, err error) (*halwire.Message, error) {
	code := halwire.ErrorCodeInternal

	var (
		unknown *unknownCommandError
		bad     *badRequestError
	)
	switch {
	case errors.As(err, &unknown):
		code = halwire.ErrorCodeUnknownCommand
	case errors.As(err, &bad):
		code = halwire.ErrorCodeInvalidBody
	}

	h.logger.Debug("soft HAL request failed", "cmd", req.Command, "error", err)

	return halwire.NewMessageWithEncMode(h.encMode, halwire.CmdError, req.ID, &halwire.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
