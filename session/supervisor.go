package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wabridge/metrics"
	"github.com/opd-ai/wabridge/transport"
)

// supervisor owns the reconnect state machine for one session. It is
// the only writer of the session record's status, challenge and
// connection handle. Cancellation (session deletion) stops the pending
// reconnect timer and is checked again before a fired timer dials, so
// a stale reconnect can never revive a deleted session.
type supervisor struct {
	m *Manager
	s *Session

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newSupervisor(m *Manager, s *Session) *supervisor {
	return &supervisor{m: m, s: s}
}

// handlers returns the fixed set of event handlers wired into every
// connection dialed for this session, first attempt and reconnects
// alike.
func (sup *supervisor) handlers() transport.EventHandlers {
	return transport.EventHandlers{
		OnChallenge:   sup.onChallenge,
		OnStatus:      sup.onStatus,
		OnMessage:     sup.onMessage,
		OnCredentials: sup.onCredentials,
	}
}

// firstDial performs the initial connection attempt. Its error is
// fatal to the create call: the caller marks the session errored and
// no retry is scheduled. Later disconnects are handled asynchronously
// by onStatus and do retry.
func (sup *supervisor) firstDial(ctx context.Context) error {
	conn, err := sup.m.dialer.Dial(ctx, sup.s.ID(), sup.handlers())
	if err != nil {
		return err
	}
	sup.adopt(conn)
	return nil
}

// adopt installs a freshly dialed connection handle, discarding any
// previous one, and moves the record to connecting unless an event
// already advanced it further. A supervisor cancelled while the dial
// was in flight must not adopt: the record is already torn down, so
// the new connection is released instead of installed. The stopped
// check and the install hold sup.mu together so a concurrent cancel
// either sees the installed handle or prevents the install.
func (sup *supervisor) adopt(conn transport.Conn) {
	sup.mu.Lock()
	if sup.stopped {
		sup.mu.Unlock()
		conn.Unsubscribe()
		conn.Close()
		return
	}
	s := sup.s
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	from := s.status
	if from == StatusInitializing || from == StatusReconnecting {
		s.status = StatusConnecting
	}
	to := s.status
	s.mu.Unlock()
	sup.mu.Unlock()
	if old != nil && old != conn {
		old.Unsubscribe()
		old.Close()
	}
	sup.finish(from, to)
}

func (sup *supervisor) onChallenge(challenge string) {
	if sup.cancelled() {
		return
	}
	from := sup.s.setChallenge(challenge)
	logrus.WithFields(logrus.Fields{
		"session": sup.s.ID(),
	}).Info("Pairing challenge issued")
	sup.finish(from, StatusQR)
}

func (sup *supervisor) onStatus(update transport.StatusUpdate) {
	if sup.cancelled() {
		return
	}
	switch update.State {
	case transport.StateConnecting:
		from := sup.s.setStatus(StatusConnecting)
		sup.finish(from, StatusConnecting)
	case transport.StateOpen:
		from := sup.s.markOpen()
		logrus.WithField("session", sup.s.ID()).Info("Session connected")
		sup.finish(from, StatusConnected)
	case transport.StateClosed:
		sup.onClosed(update.Reason)
	}
}

func (sup *supervisor) onClosed(reason transport.DisconnectReason) {
	s := sup.s

	if !reason.Recoverable() {
		terminal := StatusDisconnected
		if reason == transport.ReasonForbidden {
			terminal = StatusError
		}
		if conn := s.takeConn(); conn != nil {
			conn.Unsubscribe()
			conn.Close()
		}
		from := s.setStatus(terminal)
		logrus.WithFields(logrus.Fields{
			"session": s.ID(),
			"reason":  reason.String(),
			"code":    int(reason),
		}).Info("Connection closed permanently")
		sup.finish(from, terminal)
		return
	}

	retry, from := s.beginReconnect()
	// The old handle is dead; remove its listeners before the
	// replacement dial so two connections never share the credential
	// store.
	s.mu.Lock()
	old := s.conn
	s.mu.Unlock()
	if old != nil {
		old.Unsubscribe()
		old.Close()
	}

	delay := sup.m.backoff(retry)
	logrus.WithFields(logrus.Fields{
		"session": s.ID(),
		"reason":  reason.String(),
		"code":    int(reason),
		"retry":   retry,
		"delay":   delay,
	}).Info("Connection closed, reconnecting")
	sup.finish(from, StatusReconnecting)
	metrics.Reconnects.Inc()
	sup.schedule(delay)
}

// schedule arms the reconnect timer unless the supervisor was
// cancelled.
func (sup *supervisor) schedule(delay time.Duration) {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	if sup.stopped {
		return
	}
	sup.timer = time.AfterFunc(delay, sup.reattempt)
}

// reattempt fires from the reconnect timer. A dial failure here is not
// fatal: it consumes another retry slot and reschedules.
func (sup *supervisor) reattempt() {
	if sup.cancelled() {
		return
	}
	conn, err := sup.m.dialer.Dial(context.Background(), sup.s.ID(), sup.handlers())
	if err != nil {
		if sup.cancelled() {
			return
		}
		retry := sup.s.bumpRetry()
		delay := sup.m.backoff(retry)
		logrus.WithFields(logrus.Fields{
			"session": sup.s.ID(),
			"error":   err,
			"retry":   retry,
			"delay":   delay,
		}).Warn("Reconnect attempt failed")
		sup.schedule(delay)
		return
	}
	sup.adopt(conn)
}

func (sup *supervisor) onMessage(msg transport.Message) {
	if sup.cancelled() || msg.FromSelf {
		return
	}
	text := msg.PlainText()
	logrus.WithFields(logrus.Fields{
		"session": sup.s.ID(),
		"from":    msg.From,
	}).Debug("Inbound message received")
	sup.m.notify(EventMessage, MessageEvent{
		Session:   sup.s.ID(),
		From:      msg.From,
		MessageID: msg.ID,
		Text:      text,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
	})
}

func (sup *supervisor) onCredentials(blob []byte) {
	if sup.cancelled() || sup.m.creds == nil {
		return
	}
	if err := sup.m.creds.Save(sup.s.ID(), blob); err != nil {
		logrus.WithFields(logrus.Fields{
			"session": sup.s.ID(),
			"error":   err,
		}).Error("Persisting rotated credentials failed")
	}
}

// cancel stops the supervisor: the pending reconnect timer is stopped
// and every later event or timer fire becomes a no-op.
func (sup *supervisor) cancel() {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	sup.stopped = true
	if sup.timer != nil {
		sup.timer.Stop()
		sup.timer = nil
	}
}

func (sup *supervisor) cancelled() bool {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	return sup.stopped
}

// finish records a status transition in the metrics gauge and
// dispatches the status event. Transitions are reported in the order
// the protocol connection emitted them.
func (sup *supervisor) finish(from, to Status) {
	if from != to {
		metrics.SessionsByStatus.WithLabelValues(from.String()).Dec()
		metrics.SessionsByStatus.WithLabelValues(to.String()).Inc()
	}
	sup.m.notify(EventStatus, StatusEvent{Session: sup.s.ID(), Status: to.String()})
}

// transition moves the record to a status outside the event flow, used
// for the first-dial failure path.
func (sup *supervisor) transition(to Status) {
	from := sup.s.setStatus(to)
	sup.finish(from, to)
}
