// Package dbusapi publishes the IFAA and Soter services on D-Bus and feeds
// package manager broadcasts to the uninstall listener.
package dbusapi

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/go-ctap/halbridge/internal/errmsg"
)

const introspectableInterface = "org.freedesktop.DBus.Introspectable"

// Exporter is the part of *dbus.Conn needed to publish an object.
type Exporter interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
}

// Emitter is the part of *dbus.Conn needed to send signals.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// object describes one exported service.
type object struct {
	name    string
	path    dbus.ObjectPath
	iface   string
	impl    any
	signals []introspect.Signal
}

func (o *object) node() *introspect.Node {
	return &introspect.Node{
		Name: string(o.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    o.iface,
				Methods: introspect.Methods(o.impl),
				Signals: o.signals,
			},
		},
	}
}

// publish exports o with its introspection data and then claims its bus
// name.
func publish(conn Exporter, o *object) error {
	if err := conn.Export(o.impl, o.path, o.iface); err != nil {
		return fmt.Errorf("cannot export %s: %w", o.iface, err)
	}
	if err := conn.Export(introspect.NewIntrospectable(o.node()), o.path, introspectableInterface); err != nil {
		return fmt.Errorf("cannot export introspection of %s: %w", o.iface, err)
	}

	reply, err := conn.RequestName(o.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("cannot request name %s: %w", o.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errmsg.New(ErrNameTaken, o.name)
	}

	return nil
}

// unpublish removes the objects exported at path.
func unpublish(conn Exporter, o *object) {
	_ = conn.Export(nil, o.path, introspectableInterface)
	_ = conn.Export(nil, o.path, o.iface)
}
