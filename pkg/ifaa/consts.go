package ifaa

// Authenticator types, combined as a bitmask by SupportedTypes.
const (
	AuthTypeNotSupport         = 0
	AuthTypeFingerprint        = 1 << 0
	AuthTypeIris               = 1 << 1
	AuthTypeOpticalFingerprint = 1 << 4
)

// BioTypeAny is the virtual biometric type that EnrollmentStatus always
// reports as available on a secured device.
const BioTypeAny = 4

const (
	ActivityStartSuccess = 0
	ActivityStartFailed  = -1
)

// Enrollment status codes.
const (
	BiometricsAvailable    = 1000
	BiometricsNotSupported = 1001
	BiometricsNotEnrolled  = 1002
	ScreenLockNone         = 1003
)

const Version = 4

// ExtKeySensorLocation is the only extended info key that is answered.
const ExtKeySensorLocation = "org.ifaa.ext.key.GET_SENSOR_LOCATION"

const (
	PropIfaaTypes         = "persist.vendor.sys.pay.ifaa"
	PropFingerprintVendor = "persist.vendor.sys.fp.vendor"
	PropManufacturer      = "ro.product.manufacturer"
	PropDevice            = "ro.product.device"

	// PropLockScreenSecure backs PropertyLockScreen when no other key is
	// configured.
	PropLockScreenSecure = "persist.sys.halbridge.lockscreen.secure"
)

// SettingsAction names the settings screen opened by LaunchBiometricSettings.
const SettingsAction = "android.settings.SECURITY_SETTINGS"
