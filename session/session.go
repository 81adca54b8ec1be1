package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/opd-ai/wabridge/transport"
)

// Status is the lifecycle status of a session record.
type Status uint8

const (
	StatusInitializing Status = iota
	StatusConnecting
	StatusQR
	StatusConnected
	StatusReconnecting
	StatusDisconnected
	StatusError
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusConnecting:
		return "connecting"
	case StatusQR:
		return "qr"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalJSON parses a wire name back into a status.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for candidate := StatusInitializing; candidate <= StatusError; candidate++ {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", name)
}

// Terminal reports whether the status is final: a terminal session
// never reconnects and must be deleted and recreated to retry.
func (s Status) Terminal() bool {
	return s == StatusDisconnected || s == StatusError
}

// Info is the externally visible snapshot of a session. It never
// exposes the connection handle or the raw challenge payload.
type Info struct {
	ID           string `json:"id"`
	Status       Status `json:"status"`
	HasChallenge bool   `json:"hasChallenge"`
}

// Session is one session record. The record is mutated exclusively by
// its supervisor; other components read it through the accessor
// methods.
type Session struct {
	id string

	mu         sync.Mutex
	status     Status
	challenge  string
	conn       transport.Conn
	retryCount int
	sup        *supervisor
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Challenge returns the pending pairing challenge, empty when none is
// pending, which is every status except qr.
func (s *Session) Challenge() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// Live returns the connection handle together with the status observed
// at the same instant. The handle is non-nil only while the session is
// connecting, pairing, connected or reconnecting.
func (s *Session) Live() (transport.Conn, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.status
}

// RetryCount returns the number of consecutive failed reconnect
// attempts since the last successful open.
func (s *Session) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Info returns the session's external snapshot.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{ID: s.id, Status: s.status, HasChallenge: s.challenge != ""}
}

// setStatus moves the record to a new status and returns the previous
// one.
func (s *Session) setStatus(to Status) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.status
	s.status = to
	return from
}

// setChallenge stores a pairing challenge and moves the record to qr.
// Each new challenge supersedes the previous one.
func (s *Session) setChallenge(challenge string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.status
	s.challenge = challenge
	s.status = StatusQR
	return from
}

// markOpen records a successful open: connected status, challenge
// cleared, retry counter reset.
func (s *Session) markOpen() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.status
	s.status = StatusConnected
	s.challenge = ""
	s.retryCount = 0
	return from
}

// beginReconnect moves the record to reconnecting and consumes one
// retry slot, returning the counter value that drives the backoff for
// this attempt.
func (s *Session) beginReconnect() (int, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.status
	s.status = StatusReconnecting
	retry := s.retryCount
	s.retryCount++
	return retry, from
}

// bumpRetry consumes one retry slot without a status change, used when
// a reconnect dial itself fails.
func (s *Session) bumpRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	retry := s.retryCount
	s.retryCount++
	return retry
}

// takeConn removes and returns the connection handle.
func (s *Session) takeConn() transport.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.conn
	s.conn = nil
	return old
}

func (s *Session) supervisor() *supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup
}

func (s *Session) setSupervisor(sup *supervisor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sup = sup
}
