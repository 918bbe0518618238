package hal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/samber/mo"

	"github.com/go-ctap/halbridge/internal/errmsg"
)

// OpenFunc obtains a fresh HAL handle.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// Handle lazily opens a HAL and caches the result. Concurrent callers of Get
// observe a single open; a failed open is not cached, so the next Get tries
// again.
type Handle[T any] struct {
	name   string
	open   OpenFunc[T]
	logger *slog.Logger

	mu  sync.Mutex
	cur mo.Option[T]
}

func NewHandle[T any](name string, open OpenFunc[T], logger *slog.Logger) *Handle[T] {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handle[T]{
		name:   name,
		open:   open,
		logger: logger,
		cur:    mo.None[T](),
	}
}

// Static returns a Handle that always yields v.
func Static[T any](name string, v T) *Handle[T] {
	return NewHandle(name, func(context.Context) (T, error) {
		return v, nil
	}, nil)
}

// Get returns the cached handle or opens a new one. Open failures are
// reported wrapped in ErrUnavailable.
func (h *Handle[T]) Get(ctx context.Context) mo.Result[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v, ok := h.cur.Get(); ok {
		return mo.Ok(v)
	}

	v, err := h.open(ctx)
	if err != nil {
		h.logger.Error("cannot open HAL", "hal", h.name, "error", err)
		return mo.Err[T](errmsg.New(ErrUnavailable, h.name+": "+err.Error()))
	}

	h.logger.Debug("HAL opened", "hal", h.name)
	h.cur = mo.Some(v)

	return mo.Ok(v)
}

// Reset drops the cached handle, closing it when it is an io.Closer. It is
// the equivalent of a HAL death notification.
func (h *Handle[T]) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.cur.Get()
	if !ok {
		return
	}
	h.cur = mo.None[T]()

	h.logger.Info("HAL handle dropped", "hal", h.name)
	if c, ok := any(v).(io.Closer); ok {
		_ = c.Close()
	}
}

// Observe resets the handle when err shows that the transport is gone.
func (h *Handle[T]) Observe(err error) {
	if errors.Is(err, ErrDisconnected) || errors.Is(err, ErrClosed) {
		h.Reset()
	}
}
