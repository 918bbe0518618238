package ifaa

import (
	"context"
	"log/slog"

	"github.com/samber/mo"

	"github.com/go-ctap/halbridge/pkg/hal"
	"github.com/go-ctap/halbridge/pkg/sysprop"
)

// LockScreen reports whether a secure lock screen (PIN, pattern or password)
// is set.
type LockScreen interface {
	IsDeviceSecure(ctx context.Context) bool
}

// Enrollments reports fingerprint enrollment. A Service without Enrollments
// treats the device as lacking the fingerprint feature.
type Enrollments interface {
	HasEnrolledFingerprints(ctx context.Context) bool
}

// SettingsLauncher opens the security settings screen.
type SettingsLauncher interface {
	LaunchSecuritySettings(ctx context.Context, action string) error
}

// PropertyLockScreen takes the lock screen state from a boolean property.
type PropertyLockScreen struct {
	Props sysprop.Reader
	Key   string
}

func (l *PropertyLockScreen) IsDeviceSecure(context.Context) bool {
	key := l.Key
	if key == "" {
		key = PropLockScreenSecure
	}
	return sysprop.Bool(l.Props, key, false)
}

// HALEnrollments considers fingerprints enrolled when the payment HAL lists
// at least one fingerprint template.
type HALEnrollments struct {
	Mlipay *hal.Handle[hal.Mlipay]
	Logger *slog.Logger
}

func (e *HALEnrollments) HasEnrolledFingerprints(ctx context.Context) bool {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ids, err := idList(ctx, e.Mlipay, AuthTypeFingerprint).Get()
	if err != nil {
		logger.Warn("cannot list enrolled fingerprints", "error", err)
		return false
	}
	return len(ids) > 0
}

func idList(ctx context.Context, h *hal.Handle[hal.Mlipay], bioType int32) mo.Result[[]int32] {
	return withMlipay(ctx, h, func(m hal.Mlipay) ([]int32, error) {
		return m.IfaaGetIDList(ctx, bioType)
	})
}
