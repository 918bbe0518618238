package dbusapi

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

var (
	ErrNameTaken = errors.New("dbusapi: bus name already taken")
	ErrBadSignal = errors.New("dbusapi: malformed signal")
	ErrNoSender  = errors.New("dbusapi: caller has no bus name")

	ErrUntrustedSender = errors.New("dbusapi: signal sender is not trusted")
)

const errorAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"

func accessDenied(err error) *dbus.Error {
	return dbus.NewError(errorAccessDenied, []any{err.Error()})
}
