package dbusapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"

	"github.com/go-ctap/halbridge/internal/errmsg"
	"github.com/go-ctap/halbridge/pkg/options"
	"github.com/go-ctap/halbridge/pkg/soter"
)

const (
	PackageManagerPath      = dbus.ObjectPath("/org/halbridge/PackageManager")
	PackageManagerInterface = "org.halbridge.PackageManager"
	PackageBroadcastMember  = "PackageBroadcast"
)

// BroadcastReceiver handles package manager broadcasts.
// *soter.UninstallListener implements it.
type BroadcastReceiver interface {
	OnReceive(ctx context.Context, b soter.Broadcast)
}

// SignalSource is the part of *dbus.Conn needed to receive signals.
type SignalSource interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// PackageWatcher turns PackageBroadcast(action s, uid u[, replacing b])
// signals into broadcasts. Only signals sent by one of the trusted Unix users
// are delivered.
type PackageWatcher struct {
	logger   *slog.Logger
	conn     SignalSource
	callers  UIDResolver
	trusted  []uint32
	receiver BroadcastReceiver
}

func NewPackageWatcher(conn SignalSource, callers UIDResolver, receiver BroadcastReceiver, opts ...options.Option) *PackageWatcher {
	oo := options.NewOptions(opts...)

	return &PackageWatcher{
		logger:   oo.Logger,
		conn:     conn,
		callers:  callers,
		trusted:  oo.BroadcastUIDs,
		receiver: receiver,
	}
}

// Run delivers broadcasts until ctx is done. Broadcasts are handled one at
// a time in arrival order.
func (w *PackageWatcher) Run(ctx context.Context) error {
	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(PackageManagerPath),
		dbus.WithMatchInterface(PackageManagerInterface),
		dbus.WithMatchMember(PackageBroadcastMember),
	}
	if err := w.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("cannot subscribe to package broadcasts: %w", err)
	}
	defer func() {
		_ = w.conn.RemoveMatchSignal(match...)
	}()

	signals := make(chan *dbus.Signal, 16)
	w.conn.Signal(signals)
	defer w.conn.RemoveSignal(signals)

	return w.serve(ctx, signals)
}

func (w *PackageWatcher) serve(ctx context.Context, signals <-chan *dbus.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if sig.Path != PackageManagerPath || sig.Name != PackageManagerInterface+"."+PackageBroadcastMember {
				continue
			}
			if err := w.verifySender(ctx, sig.Sender); err != nil {
				w.logger.Warn("ignoring package broadcast", "sender", sig.Sender, "error", err)
				continue
			}

			b, err := broadcastFromSignal(sig)
			if err != nil {
				w.logger.Warn("dropping package broadcast", "sender", sig.Sender, "error", err)
				continue
			}

			w.logger.Debug("package broadcast", "action", b.Action, "uid", b.UID, "replacing", b.Replacing)
			w.receiver.OnReceive(ctx, b)
		}
	}
}

func (w *PackageWatcher) verifySender(ctx context.Context, sender string) error {
	uid, err := w.callers.UnixUser(ctx, dbus.Sender(sender))
	if err != nil {
		return err
	}
	if !lo.Contains(w.trusted, uid) {
		return errmsg.New(ErrUntrustedSender, fmt.Sprintf("uid %d", uid))
	}
	return nil
}

// broadcastFromSignal reads the signal body. A missing replacing argument
// reads as false.
func broadcastFromSignal(sig *dbus.Signal) (soter.Broadcast, error) {
	if len(sig.Body) != 2 && len(sig.Body) != 3 {
		return soter.Broadcast{}, errmsg.New(ErrBadSignal, fmt.Sprintf("%d arguments", len(sig.Body)))
	}

	action, ok := sig.Body[0].(string)
	if !ok {
		return soter.Broadcast{}, errmsg.New(ErrBadSignal, "action is not a string")
	}
	uid, ok := sig.Body[1].(uint32)
	if !ok {
		return soter.Broadcast{}, errmsg.New(ErrBadSignal, "uid is not a uint32")
	}
	var replacing bool
	if len(sig.Body) == 3 {
		if replacing, ok = sig.Body[2].(bool); !ok {
			return soter.Broadcast{}, errmsg.New(ErrBadSignal, "replacing is not a boolean")
		}
	}

	return soter.Broadcast{
		Action:    action,
		UID:       uid,
		Replacing: replacing,
	}, nil
}
