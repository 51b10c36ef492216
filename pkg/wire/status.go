package wire

import "fmt"

// Status is the status code carried by every device response.
type Status int32

const (
	StatusSuccess          Status = 0
	StatusInvalidSecScheme Status = 1
	StatusInvalidProto     Status = 2
	StatusTooManySessions  Status = 3
	StatusInvalidArgument  Status = 4
	StatusInternalError    Status = 5
	StatusCryptoError      Status = 6
	StatusInvalidSession   Status = 7
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidSecScheme:
		return "INVALID_SEC_SCHEME"
	case StatusInvalidProto:
		return "INVALID_PROTO"
	case StatusTooManySessions:
		return "TOO_MANY_SESSIONS"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	case StatusCryptoError:
		return "CRYPTO_ERROR"
	case StatusInvalidSession:
		return "INVALID_SESSION"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// StatusError is returned when a device response carries a non-success
// status.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: device returned %s", e.Op, e.Status)
}
