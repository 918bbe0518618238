package dbusapi

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// UIDResolver maps the unique bus name of a caller to its Unix user id.
type UIDResolver interface {
	UnixUser(ctx context.Context, sender dbus.Sender) (uint32, error)
}

// BusCallers asks the bus daemon who owns a connection.
type BusCallers struct {
	Bus dbus.BusObject
}

func NewBusCallers(conn *dbus.Conn) *BusCallers {
	return &BusCallers{Bus: conn.BusObject()}
}

func (c *BusCallers) UnixUser(ctx context.Context, sender dbus.Sender) (uint32, error) {
	if sender == "" {
		return 0, ErrNoSender
	}

	var uid uint32
	if err := c.Bus.CallWithContext(ctx, "org.freedesktop.DBus.GetConnectionUnixUser", 0, string(sender)).Store(&uid); err != nil {
		return 0, fmt.Errorf("cannot resolve uid of %s: %w", sender, err)
	}
	return uid, nil
}
