package soter

import (
	"context"
	"log/slog"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/options"
)

// Broadcast is a package manager event.
type Broadcast struct {
	Action    string
	UID       uint32
	Replacing bool
}

// UninstallListener removes the keys of packages that are uninstalled for
// good. Updates keep their keys.
type UninstallListener struct {
	logger *slog.Logger
	soter  *hal.Handle[hal.Soter]
}

func NewUninstallListener(soter *hal.Handle[hal.Soter], opts ...options.Option) *UninstallListener {
	oo := options.NewOptions(opts...)

	return &UninstallListener{
		logger: oo.Logger,
		soter:  soter,
	}
}

// OnReceive handles one broadcast. Failures are logged only.
func (l *UninstallListener) OnReceive(ctx context.Context, b Broadcast) {
	if b.Action != ActionPackageFullyRemoved || b.Replacing {
		return
	}

	if l.soter == nil {
		l.logger.Error("soter HAL is not configured")
		return
	}

	h, err := l.soter.Get(ctx).Get()
	if err != nil {
		l.logger.Error("soter HAL is unavailable", "error", err)
		return
	}

	code, err := h.RemoveAllUIDKey(ctx, b.UID)
	if err != nil {
		l.soter.Observe(err)
		l.logger.Error("cannot remove keys of uninstalled package", "uid", b.UID, "error", err)
		return
	}
	if code != CodeOK {
		l.logger.Warn("removing keys of uninstalled package failed", "uid", b.UID, "code", code)
		return
	}

	l.logger.Info("removed keys of uninstalled package", "uid", b.UID)
}
