package transport

import "fmt"

// DisconnectReason is the status code carried by a close event. The
// values mirror the upstream protocol's disconnect codes so that logs
// line up with what the network actually reported.
type DisconnectReason int

const (
	ReasonUnknown             DisconnectReason = 0
	ReasonLoggedOut           DisconnectReason = 401
	ReasonForbidden           DisconnectReason = 403
	ReasonConnectionLost      DisconnectReason = 408
	ReasonMultideviceMismatch DisconnectReason = 411
	ReasonConnectionClosed    DisconnectReason = 428
	ReasonConnectionReplaced  DisconnectReason = 440
	ReasonBadSession          DisconnectReason = 500
	ReasonServiceUnavailable  DisconnectReason = 503
	ReasonRestartRequired     DisconnectReason = 515
)

// Recoverable reports whether the session layer may reconnect after a
// close with this reason. An explicit logout or rejected credentials
// can only be resolved by deleting and recreating the session.
func (r DisconnectReason) Recoverable() bool {
	switch r {
	case ReasonLoggedOut, ReasonForbidden:
		return false
	}
	return true
}

// String returns a short name for the disconnect reason.
func (r DisconnectReason) String() string {
	switch r {
	case ReasonLoggedOut:
		return "logged out"
	case ReasonForbidden:
		return "forbidden"
	case ReasonConnectionLost:
		return "connection lost"
	case ReasonMultideviceMismatch:
		return "multidevice mismatch"
	case ReasonConnectionClosed:
		return "connection closed"
	case ReasonConnectionReplaced:
		return "connection replaced"
	case ReasonBadSession:
		return "bad session"
	case ReasonServiceUnavailable:
		return "service unavailable"
	case ReasonRestartRequired:
		return "restart required"
	case ReasonUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("code %d", int(r))
	}
}
