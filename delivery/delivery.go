package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wabridge/metrics"
	"github.com/opd-ai/wabridge/session"
	"github.com/opd-ai/wabridge/transport"
)

const (
	// maxSendRetries is how many additional attempts a transient send
	// failure earns beyond the first.
	maxSendRetries = 2

	// DefaultBulkDelay is the pause between consecutive sends of a
	// bulk batch when the caller does not specify one.
	DefaultBulkDelay = time.Second
)

// NotConnectedError reports an operation that requires a connected
// session while the session is in another state.
type NotConnectedError struct {
	Status session.Status
}

// Error implements the error interface.
func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("session is not connected (current status: %s)", e.Status)
}

// SendError reports a send that failed after its retries were
// exhausted.
type SendError struct {
	Retries int
	Err     error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("message sending failed after %d retries: %v", e.Retries, e.Err)
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying transport error.
func (e *SendError) Unwrap() error { return e.Err }

// Result is the outcome of one successful send.
type Result struct {
	MessageID string
	Retries   int
}

// TargetResult is the per-target outcome of a bulk send.
type TargetResult struct {
	Target    string `json:"to"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CheckResult is the outcome of a registration lookup.
type CheckResult struct {
	Number string `json:"number"`
	Exists bool   `json:"exists"`
	JID    string `json:"jid,omitempty"`
}

// Options configures a Sender. The zero value uses production timing.
type Options struct {
	// RetryPause is the fixed pause between transient-failure retries.
	// Defaults to one second.
	RetryPause time.Duration

	// BulkDelay is the default inter-message delay for bulk sends.
	BulkDelay time.Duration
}

// Sender delivers outbound messages through connected sessions held by
// the registry.
type Sender struct {
	sessions   *session.Manager
	retryPause time.Duration
	bulkDelay  time.Duration
}

// NewSender creates a Sender backed by the session registry.
func NewSender(sessions *session.Manager, opts *Options) *Sender {
	s := &Sender{
		sessions:   sessions,
		retryPause: time.Second,
		bulkDelay:  DefaultBulkDelay,
	}
	if opts != nil {
		if opts.RetryPause > 0 {
			s.retryPause = opts.RetryPause
		}
		if opts.BulkDelay > 0 {
			s.bulkDelay = opts.BulkDelay
		}
	}
	return s
}

// connected resolves the session and enforces the connected
// precondition, each failure reported as its own error.
func (s *Sender) connected(sessionID string) (transport.Conn, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, session.ErrNotFound
	}
	conn, status := sess.Live()
	if status != session.StatusConnected || conn == nil {
		return nil, &NotConnectedError{Status: status}
	}
	return conn, nil
}

// Send delivers one payload to the target through the session. On a
// transient transport failure the send is retried up to two more times
// with a fixed pause between attempts; any other failure is reported
// immediately. The result carries the protocol-assigned message id and
// how many retries were needed.
func (s *Sender) Send(ctx context.Context, sessionID, to string, p Payload) (Result, error) {
	conn, err := s.connected(sessionID)
	if err != nil {
		return Result{}, err
	}
	shaped, err := p.shape()
	if err != nil {
		return Result{}, err
	}
	jid := NormalizeJID(to)

	for attempt := 0; ; attempt++ {
		id, err := conn.Send(ctx, jid, shaped)
		if err == nil {
			metrics.MessagesSent.Inc()
			return Result{MessageID: id, Retries: attempt}, nil
		}
		if attempt < maxSendRetries && transport.IsTransient(err) {
			metrics.SendRetries.Inc()
			logrus.WithFields(logrus.Fields{
				"session": sessionID,
				"attempt": attempt + 1,
				"max":     maxSendRetries,
				"error":   err,
			}).Warn("Send failed on closing transport, retrying")
			select {
			case <-time.After(s.retryPause):
			case <-ctx.Done():
				metrics.MessagesFailed.Inc()
				return Result{Retries: attempt}, &SendError{Retries: attempt, Err: ctx.Err()}
			}
			continue
		}
		metrics.MessagesFailed.Inc()
		logrus.WithFields(logrus.Fields{
			"session": sessionID,
			"retries": attempt,
			"error":   err,
		}).Error("Send failed")
		return Result{Retries: attempt}, &SendError{Retries: attempt, Err: err}
	}
}

// SendBulk delivers one payload to an ordered list of targets,
// sequentially, pausing between every pair of sends but not after the
// last. Preconditions are checked once for the whole batch; individual
// target failures are collected and never abort the remaining batch.
func (s *Sender) SendBulk(ctx context.Context, sessionID string, targets []string, p Payload, delay time.Duration) ([]TargetResult, error) {
	conn, err := s.connected(sessionID)
	if err != nil {
		return nil, err
	}
	shaped, err := p.shape()
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = s.bulkDelay
	}

	results := make([]TargetResult, 0, len(targets))
	for i, to := range targets {
		id, err := conn.Send(ctx, NormalizeJID(to), shaped)
		if err != nil {
			metrics.MessagesFailed.Inc()
			logrus.WithFields(logrus.Fields{
				"session": sessionID,
				"target":  to,
				"error":   err,
			}).Error("Bulk send to target failed")
			results = append(results, TargetResult{Target: to, Status: "failed", Error: err.Error()})
		} else {
			metrics.MessagesSent.Inc()
			results = append(results, TargetResult{Target: to, Status: "sent", MessageID: id})
		}
		if i < len(targets)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				// Remaining targets are reported as failed rather than
				// silently dropped.
				for _, rest := range targets[i+1:] {
					results = append(results, TargetResult{Target: rest, Status: "failed", Error: ctx.Err().Error()})
				}
				return results, nil
			}
		}
	}
	return results, nil
}

// CheckNumber reports whether the target is registered on the network.
func (s *Sender) CheckNumber(ctx context.Context, sessionID, number string) (CheckResult, error) {
	conn, err := s.connected(sessionID)
	if err != nil {
		return CheckResult{}, err
	}
	jid, exists, err := conn.OnNetwork(ctx, NormalizeIndividualJID(number))
	if err != nil {
		return CheckResult{}, err
	}
	out := CheckResult{Number: number, Exists: exists}
	if exists {
		out.JID = jid
	}
	return out, nil
}

// SendContact delivers a contact card to the target. The target is
// always qualified as an individual account, never reclassified as a
// group by the length heuristic. Contact cards go through the same
// retry policy as any other send.
func (s *Sender) SendContact(ctx context.Context, sessionID, to string, card ContactCard) (Result, error) {
	return s.Send(ctx, sessionID, NormalizeIndividualJID(to), Payload{Contact: &card})
}

// SetTyping publishes a chat presence verb to the target. An empty
// state defaults to composing.
func (s *Sender) SetTyping(ctx context.Context, sessionID, to, state string) error {
	conn, err := s.connected(sessionID)
	if err != nil {
		return err
	}
	if state == "" {
		state = string(transport.PresenceComposing)
	}
	presence := transport.PresenceState(state)
	if !presence.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTypingState, state)
	}
	return conn.Presence(ctx, NormalizeJID(to), presence)
}
