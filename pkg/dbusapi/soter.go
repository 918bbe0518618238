package dbusapi

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/go-ctap/halbridge/pkg/options"
	"github.com/go-ctap/halbridge/pkg/soter"
)

const (
	SoterName      = "com.tencent.soter.soterserver"
	SoterPath      = dbus.ObjectPath("/com/tencent/soter/soterserver/SoterService")
	SoterInterface = "com.tencent.soter.soterserver.ISoterService"
)

// soterObject is exported as SoterInterface. Keys are always scoped to the
// Unix user of the calling connection.
type soterObject struct {
	ctx     context.Context
	logger  *slog.Logger
	svc     *soter.Service
	callers UIDResolver
}

func newSoterObject(svc *soter.Service, callers UIDResolver, oo *options.Options) *soterObject {
	return &soterObject{
		ctx:     oo.Context,
		logger:  oo.Logger,
		svc:     svc,
		callers: callers,
	}
}

func (o *soterObject) caller(sender dbus.Sender) (uint32, *dbus.Error) {
	uid, err := o.callers.UnixUser(o.ctx, sender)
	if err != nil {
		o.logger.Warn("cannot identify caller", "sender", sender, "error", err)
		return 0, accessDenied(err)
	}
	return uid, nil
}

func (o *soterObject) GenerateAppSecureKey(sender dbus.Sender) (int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, derr
	}
	return o.svc.GenerateAppKey(o.ctx, uid), nil
}

func (o *soterObject) GetAppSecureKey(sender dbus.Sender) (int32, []byte, int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, nil, 0, derr
	}

	res := o.svc.GetAppKey(o.ctx, uid)
	return res.Code, nonNil(res.Data), res.Length, nil
}

func (o *soterObject) HasAskAlready(sender dbus.Sender) (bool, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return false, derr
	}
	return o.svc.HasAppKey(o.ctx, uid), nil
}

func (o *soterObject) GenerateAuthKey(sender dbus.Sender, name string) (int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, derr
	}
	return o.svc.GenerateAuthKey(o.ctx, uid, name), nil
}

func (o *soterObject) RemoveAuthKey(sender dbus.Sender, name string) (int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, derr
	}
	return o.svc.RemoveAuthKey(o.ctx, uid, name), nil
}

func (o *soterObject) GetAuthKey(sender dbus.Sender, name string) (int32, []byte, int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, nil, 0, derr
	}

	res := o.svc.GetAuthKey(o.ctx, uid, name)
	return res.Code, nonNil(res.Data), res.Length, nil
}

func (o *soterObject) RemoveAllAuthKey(sender dbus.Sender) (int32, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, derr
	}
	return o.svc.RemoveAllAuthKeys(o.ctx, uid), nil
}

func (o *soterObject) HasAuthKey(sender dbus.Sender, name string) (bool, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return false, derr
	}
	return o.svc.HasAuthKey(o.ctx, uid, name), nil
}

// InitSigh keeps the method name Soter clients call.
func (o *soterObject) InitSigh(sender dbus.Sender, name, challenge string) (int32, uint64, *dbus.Error) {
	uid, derr := o.caller(sender)
	if derr != nil {
		return 0, 0, derr
	}

	res := o.svc.BeginSigningSession(o.ctx, uid, name, challenge)
	return res.Code, res.Session, nil
}

// FinishSign needs no caller identity: the session handle names the key.
func (o *soterObject) FinishSign(session uint64) (int32, []byte, int32, *dbus.Error) {
	res := o.svc.FinishSigningSession(o.ctx, session)
	return res.Code, nonNil(res.Data), res.Length, nil
}

func (o *soterObject) GetDeviceId() (int32, []byte, int32, *dbus.Error) {
	res := o.svc.DeviceID(o.ctx)
	return res.Code, nonNil(res.Data), res.Length, nil
}

func (o *soterObject) GetVersion() (int32, *dbus.Error) {
	return o.svc.Version(), nil
}

// nonNil turns a missing payload into an empty array, which D-Bus can carry.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func soterDescription(impl any) *object {
	return &object{
		name:  SoterName,
		path:  SoterPath,
		iface: SoterInterface,
		impl:  impl,
	}
}

// ExportSoter publishes svc as the Soter service and claims SoterName.
func ExportSoter(conn Exporter, svc *soter.Service, callers UIDResolver, opts ...options.Option) error {
	oo := options.NewOptions(opts...)

	o := soterDescription(newSoterObject(svc, callers, oo))
	if err := publish(conn, o); err != nil {
		unpublish(conn, o)
		return err
	}

	oo.Logger.Info("Soter service exported", "name", SoterName, "path", SoterPath)
	return nil
}
