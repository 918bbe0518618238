// Package ifaa implements the IFAA manager: biometric capability discovery
// and pass-through to the vendor payment HAL.
package ifaa

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/options"
	"github.com/go-ctap/halbridge/pkg/sysprop"
)

// Deps are the collaborators of a Service. Props is required; the others may
// be nil.
type Deps struct {
	Props       sysprop.Reader
	Mlipay      *hal.Handle[hal.Mlipay]
	LockScreen  LockScreen
	Enrollments Enrollments
	Settings    SettingsLauncher
}

type Service struct {
	logger         *slog.Logger
	props          sysprop.Reader
	mlipay         *hal.Handle[hal.Mlipay]
	lockScreen     LockScreen
	enrollments    Enrollments
	settings       SettingsLauncher
	geometry       geometryProps
	invalidVendors []string
}

func NewService(deps Deps, opts ...options.Option) *Service {
	oo := options.NewOptions(opts...)

	return &Service{
		logger:      oo.Logger,
		props:       deps.Props,
		mlipay:      deps.Mlipay,
		lockScreen:  deps.LockScreen,
		enrollments: deps.Enrollments,
		settings:    deps.Settings,
		geometry:    schemes[oo.GeometryScheme],
		invalidVendors: lo.Map(oo.InvalidVendors, func(v string, _ int) string {
			return strings.ToLower(v)
		}),
	}
}

func withMlipay[T any](ctx context.Context, h *hal.Handle[hal.Mlipay], fn func(hal.Mlipay) (T, error)) mo.Result[T] {
	if h == nil {
		return mo.Err[T](hal.ErrUnavailable)
	}

	m, err := h.Get(ctx).Get()
	if err != nil {
		return mo.Err[T](err)
	}

	v, err := fn(m)
	if err != nil {
		h.Observe(err)
		return mo.Err[T](err)
	}

	return mo.Ok(v)
}

func (s *Service) underDisplaySensor() bool {
	return sysprop.Bool(s.props, s.geometry.Flag, false)
}

// SupportedTypes reports the authenticator bitmask. Fingerprint is only
// claimed when a fingerprint vendor is configured.
func (s *Service) SupportedTypes() int {
	raw := sysprop.Int(s.props, PropIfaaTypes, 0)
	vendor, _ := s.props.Get(PropFingerprintVendor)

	var types int
	if lo.Contains(s.invalidVendors, strings.ToLower(vendor)) {
		types = raw & AuthTypeIris
	} else {
		types = raw & (AuthTypeFingerprint | AuthTypeIris)
	}

	if types&AuthTypeFingerprint != 0 && s.underDisplaySensor() {
		types |= AuthTypeOpticalFingerprint
	}

	return types
}

// LaunchBiometricSettings opens the security settings for fingerprint and
// refuses every other type. The result only says whether a launch was
// attempted.
func (s *Service) LaunchBiometricSettings(ctx context.Context, authType int) int {
	if authType != AuthTypeFingerprint {
		return ActivityStartFailed
	}

	if s.settings == nil {
		s.logger.Warn("no settings launcher configured")
	} else if err := s.settings.LaunchSecuritySettings(ctx, SettingsAction); err != nil {
		s.logger.Error("cannot launch security settings", "error", err)
	}

	return ActivityStartSuccess
}

func (s *Service) DeviceModel() string {
	manufacturer, _ := s.props.Get(PropManufacturer)
	device, _ := s.props.Get(PropDevice)

	return manufacturer + "-" + device
}

// SendVendorCommand forwards param to the payment HAL. The result is None
// when the HAL is unavailable or the call fails.
func (s *Service) SendVendorCommand(ctx context.Context, param []byte) mo.Option[[]byte] {
	data, err := withMlipay(ctx, s.mlipay, func(m hal.Mlipay) ([]byte, error) {
		return m.InvokeCommand(ctx, param)
	}).Get()
	if err != nil {
		s.logger.Error("mlipay invoke_command failed", "error", err)
		return mo.None[[]byte]()
	}

	if data == nil {
		data = []byte{}
	}
	return mo.Some(data)
}

func (s *Service) Version() int {
	return Version
}

// ExtendedInfo answers ExtKeySensorLocation on devices with an under-display
// sensor. Every other request yields "".
func (s *Service) ExtendedInfo(authType int, key string) string {
	if key != ExtKeySensorLocation {
		s.logger.Info("unsupported extended info requested", "authType", authType, "key", key)
		return ""
	}

	if !s.underDisplaySensor() {
		s.logger.Info("sensor location requested but no under-display sensor")
		return ""
	}

	location, _ := s.props.Get(s.geometry.Location)
	size, _ := s.props.Get(s.geometry.Size)

	geometry, ok := ParseGeometry(location, size).Get()
	if !ok {
		s.logger.Error("cannot parse sensor geometry", "location", location, "size", size)
		return ""
	}

	info, err := geometry.MarshalLocation()
	if err != nil {
		s.logger.Error("cannot encode sensor location", "error", err)
		return ""
	}

	return info
}

func (s *Service) SetExtendedInfo(int, string, string) {}

// EnrollmentStatus reports whether bioType can be used for authentication.
func (s *Service) EnrollmentStatus(ctx context.Context, bioType int) int {
	if s.lockScreen == nil || !s.lockScreen.IsDeviceSecure(ctx) {
		return ScreenLockNone
	}

	switch {
	case bioType == BioTypeAny:
		return BiometricsAvailable
	case bioType != AuthTypeFingerprint:
		return BiometricsNotSupported
	case s.enrollments == nil:
		return BiometricsNotSupported
	case !s.enrollments.HasEnrolledFingerprints(ctx):
		return BiometricsNotEnrolled
	default:
		return BiometricsAvailable
	}
}

// EnrolledIDList returns the template ids the payment HAL holds for bioType.
// It is empty, never nil, when the HAL cannot be reached.
func (s *Service) EnrolledIDList(ctx context.Context, bioType int32) []int32 {
	ids, err := idList(ctx, s.mlipay, bioType).Get()
	if err != nil {
		s.logger.Error("mlipay ifaa_get_idlist failed", "error", err)
		return []int32{}
	}

	if ids == nil {
		return []int32{}
	}
	return ids
}
