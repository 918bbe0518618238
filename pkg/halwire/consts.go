package halwire

import "fmt"

// Command identifies a HAL call on the wire.
type Command byte

const (
	// Payment HAL (vendor.xiaomi.hardware.mlipay).
	CmdInvokeCommand Command = 0x01
	CmdIfaaGetIDList Command = 0x02

	// Secure element HAL (vendor.qti.hardware.soter).
	CmdGenerateAskKeyPair     Command = 0x10
	CmdExportAskPublicKey     Command = 0x11
	CmdHasAskAlready          Command = 0x12
	CmdGenerateAuthKeyPair    Command = 0x13
	CmdExportAuthKeyPublicKey Command = 0x14
	CmdRemoveAuthKey          Command = 0x15
	CmdRemoveAllUIDKey        Command = 0x16
	CmdHasAuthKey             Command = 0x17
	CmdInitSign               Command = 0x18
	CmdFinishSign             Command = 0x19
	CmdGetDeviceID            Command = 0x1a

	CmdError Command = 0x3f
)

var commandNames = map[Command]string{
	CmdInvokeCommand:          "InvokeCommand",
	CmdIfaaGetIDList:          "IfaaGetIDList",
	CmdGenerateAskKeyPair:     "GenerateAskKeyPair",
	CmdExportAskPublicKey:     "ExportAskPublicKey",
	CmdHasAskAlready:          "HasAskAlready",
	CmdGenerateAuthKeyPair:    "GenerateAuthKeyPair",
	CmdExportAuthKeyPublicKey: "ExportAuthKeyPublicKey",
	CmdRemoveAuthKey:          "RemoveAuthKey",
	CmdRemoveAllUIDKey:        "RemoveAllUIDKey",
	CmdHasAuthKey:             "HasAuthKey",
	CmdInitSign:               "InitSign",
	CmdFinishSign:             "FinishSign",
	CmdGetDeviceID:            "GetDeviceID",
	CmdError:                  "Error",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02x)", byte(c))
}

// ErrorCode is carried by CmdError responses.
type ErrorCode uint8

const (
	ErrorCodeUnknownCommand ErrorCode = 0x01
	ErrorCodeInvalidBody    ErrorCode = 0x02
	ErrorCodeInternal       ErrorCode = 0x7f
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeUnknownCommand:
		return "ERR_UNKNOWN_COMMAND"
	case ErrorCodeInvalidBody:
		return "ERR_INVALID_BODY"
	case ErrorCodeInternal:
		return "ERR_INTERNAL"
	default:
		return fmt.Sprintf("ErrorCode(0x%02x)", uint8(c))
	}
}

// MaxBodySize is bounded by the 16-bit length field.
const MaxBodySize = 0xffff

const headerSize = 1 + 16 + 2
