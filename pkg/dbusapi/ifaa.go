package dbusapi

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/go-ctap/halbridge/pkg/ifaa"
	"github.com/go-ctap/halbridge/pkg/options"
)

const (
	IfaaName      = "org.ifaa.aidl.manager"
	IfaaPath      = dbus.ObjectPath("/org/ifaa/aidl/manager/IfaaManagerService")
	IfaaInterface = "org.ifaa.aidl.manager.IfaaManagerService"

	// SettingsSignal is emitted on IfaaPath when the security settings
	// should be shown.
	SettingsSignal = IfaaInterface + ".SecuritySettingsRequested"
)

// ifaaObject is exported as IfaaInterface. Every exported method is a D-Bus
// method.
type ifaaObject struct {
	ctx    context.Context
	logger *slog.Logger
	svc    *ifaa.Service
}

func newIfaaObject(svc *ifaa.Service, oo *options.Options) *ifaaObject {
	return &ifaaObject{
		ctx:    oo.Context,
		logger: oo.Logger,
		svc:    svc,
	}
}

func (o *ifaaObject) GetSupportBIOTypes() (int32, *dbus.Error) {
	return int32(o.svc.SupportedTypes()), nil
}

func (o *ifaaObject) StartBIOManager(authType int32) (int32, *dbus.Error) {
	return int32(o.svc.LaunchBiometricSettings(o.ctx, int(authType))), nil
}

func (o *ifaaObject) GetDeviceModel() (string, *dbus.Error) {
	return o.svc.DeviceModel(), nil
}

// ProcessCmd returns the HAL answer and whether there was one.
func (o *ifaaObject) ProcessCmd(param []byte) ([]byte, bool, *dbus.Error) {
	out, ok := o.svc.SendVendorCommand(o.ctx, param).Get()
	if !ok {
		return []byte{}, false, nil
	}
	return out, true, nil
}

func (o *ifaaObject) GetVersion() (int32, *dbus.Error) {
	return int32(o.svc.Version()), nil
}

func (o *ifaaObject) GetExtInfo(authType int32, key string) (string, *dbus.Error) {
	return o.svc.ExtendedInfo(int(authType), key), nil
}

func (o *ifaaObject) SetExtInfo(authType int32, key, value string) *dbus.Error {
	o.svc.SetExtendedInfo(int(authType), key, value)
	return nil
}

func (o *ifaaObject) GetEnabled(bioType int32) (int32, *dbus.Error) {
	return int32(o.svc.EnrollmentStatus(o.ctx, int(bioType))), nil
}

func (o *ifaaObject) GetIDList(bioType int32) ([]int32, *dbus.Error) {
	return o.svc.EnrolledIDList(o.ctx, bioType), nil
}

func ifaaDescription(impl any) *object {
	return &object{
		name:  IfaaName,
		path:  IfaaPath,
		iface: IfaaInterface,
		impl:  impl,
		signals: []introspect.Signal{
			{
				Name: "SecuritySettingsRequested",
				Args: []introspect.Arg{
					{Name: "action", Type: "s"},
				},
			},
		},
	}
}

// ExportIfaa publishes svc as the IFAA manager and claims IfaaName.
func ExportIfaa(conn Exporter, svc *ifaa.Service, opts ...options.Option) error {
	oo := options.NewOptions(opts...)

	o := ifaaDescription(newIfaaObject(svc, oo))
	if err := publish(conn, o); err != nil {
		unpublish(conn, o)
		return err
	}

	oo.Logger.Info("IFAA manager exported", "name", IfaaName, "path", IfaaPath)
	return nil
}

// SignalLauncher implements ifaa.SettingsLauncher by emitting
// SettingsSignal. A session agent is expected to open the screen.
type SignalLauncher struct {
	Conn Emitter
}

func (l *SignalLauncher) LaunchSecuritySettings(_ context.Context, action string) error {
	return l.Conn.Emit(IfaaPath, SettingsSignal, action)
}
