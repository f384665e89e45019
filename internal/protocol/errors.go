package protocol

const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadVersion      = "E_BAD_VERSION"
	ErrInvalidReport   = "E_INVALID_REPORT"
	ErrInternal        = "E_INTERNAL"
)
