package halwire

// InvokeCommandRequest mirrors IMlipayService.invoke_command.
type InvokeCommandRequest struct {
	Param []byte `cbor:"1,keyasint,omitempty"`
}

type InvokeCommandResponse struct {
	Data []byte `cbor:"1,keyasint,omitempty"`
}

type IDListRequest struct {
	BioType int32 `cbor:"1,keyasint"`
}

type IDListResponse struct {
	IDs []int32 `cbor:"1,keyasint,omitempty"`
}

// KeyRequest addresses the app secure key (Name empty) or one auth key of
// a UID.
type KeyRequest struct {
	UID  uint32 `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint,omitempty"`
}

type InitSignRequest struct {
	UID       uint32 `cbor:"1,keyasint"`
	Name      string `cbor:"2,keyasint"`
	Challenge string `cbor:"3,keyasint"`
}

type FinishSignRequest struct {
	Session uint64 `cbor:"1,keyasint"`
}

// Empty is the body of calls without arguments.
type Empty struct{}

// CodeResponse carries a bare HAL result code.
type CodeResponse struct {
	Code int32 `cbor:"1,keyasint"`
}

// DataResponse is shared by the export, finish-sign and device-id calls.
type DataResponse struct {
	Code   int32  `cbor:"1,keyasint"`
	Data   []byte `cbor:"2,keyasint,omitempty"`
	Length int32  `cbor:"3,keyasint"`
}

type SessionResponse struct {
	Code    int32  `cbor:"1,keyasint"`
	Session uint64 `cbor:"2,keyasint"`
}

type ErrorResponse struct {
	Code    ErrorCode `cbor:"1,keyasint"`
	Message string    `cbor:"2,keyasint,omitempty"`
}
