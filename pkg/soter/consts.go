package soter

// Result codes returned to Soter clients.
const (
	CodeOK             int32 = 0
	CodeFailed         int32 = -200
	CodeKeyNameEmpty   int32 = -202
	CodeChallengeEmpty int32 = -203
	CodeSessionInvalid int32 = -204
	CodeUnavailable    int32 = -1000
)

const Version = 1

// ActionPackageFullyRemoved is broadcast once an uninstalled package's data
// is gone.
const ActionPackageFullyRemoved = "android.intent.action.PACKAGE_FULLY_REMOVED"
