// Package memory provides an in-process simulated protocol engine.
//
// The simulated engine implements transport.Dialer and transport.Conn
// without any network I/O. It backs the test suites of the session and
// delivery layers, and the development run mode of the daemon, where a
// real engine is not wired. Connections record every outbound
// operation and expose Emit helpers so tests can script lifecycle
// events in a controlled order.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/wabridge/transport"
)

// Dialer is a simulated transport.Dialer. The zero value is not
// usable; construct with NewDialer.
type Dialer struct {
	mu       sync.Mutex
	conns    map[string][]*Conn
	dialErrs []error

	// AutoPair, when set, makes every dialed connection run a pairing
	// sequence on its own: connecting, a challenge, then open with a
	// credential rotation after PairDelay.
	AutoPair  bool
	PairDelay time.Duration

	// Challenge overrides the generated challenge text in AutoPair
	// mode.
	Challenge string
}

// NewDialer creates an empty simulated dialer.
func NewDialer() *Dialer {
	return &Dialer{
		conns:     make(map[string][]*Conn),
		PairDelay: 50 * time.Millisecond,
	}
}

// FailNextDial queues an error to be returned by the next Dial call.
// Queued errors are consumed in order before any connection is
// constructed.
func (d *Dialer) FailNextDial(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErrs = append(d.dialErrs, err)
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(_ context.Context, sessionID string, h transport.EventHandlers) (transport.Conn, error) {
	d.mu.Lock()
	if len(d.dialErrs) > 0 {
		err := d.dialErrs[0]
		d.dialErrs = d.dialErrs[1:]
		d.mu.Unlock()
		return nil, err
	}
	c := &Conn{
		sessionID: sessionID,
		handlers:  h,
	}
	d.conns[sessionID] = append(d.conns[sessionID], c)
	autoPair := d.AutoPair
	challenge := d.Challenge
	delay := d.PairDelay
	d.mu.Unlock()

	if autoPair {
		if challenge == "" {
			challenge = fmt.Sprintf("pair-%s-%s", sessionID, uuid.NewString()[:8])
		}
		go func() {
			c.EmitConnecting()
			c.EmitChallenge(challenge)
			time.Sleep(delay)
			c.EmitCredentials([]byte(fmt.Sprintf(`{"session":%q,"paired_at":%q}`, sessionID, time.Now().UTC().Format(time.RFC3339))))
			c.EmitOpen()
		}()
	}
	return c, nil
}

// Conn returns the most recently dialed connection for the session, or
// nil if none exists.
func (d *Dialer) Conn(sessionID string) *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.conns[sessionID]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// DialCount returns how many connections were dialed for the session.
func (d *Dialer) DialCount(sessionID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns[sessionID])
}

// Sent records one outbound send accepted by a simulated connection.
type Sent struct {
	JID       string
	Payload   transport.Payload
	MessageID string
}

// PresenceUpdate records one presence publication.
type PresenceUpdate struct {
	JID   string
	State transport.PresenceState
}

// Conn is a simulated transport.Conn.
type Conn struct {
	sessionID string

	mu           sync.Mutex
	handlers     transport.EventHandlers
	unsubscribed bool
	closed       bool
	loggedOut    bool

	sendErrs []error
	failTo   map[string]error
	sent     []Sent
	presence []PresenceUpdate

	groups   []transport.GroupInfo
	contacts []transport.ContactInfo
	known    map[string]string
}

// Send implements transport.Conn. Queued send errors are consumed
// first; otherwise the send is recorded and assigned a generated
// message id.
func (c *Conn) Send(_ context.Context, jid string, p transport.Payload) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", transport.ErrConnectionClosed
	}
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		return "", err
	}
	if err := c.failTo[jid]; err != nil {
		return "", err
	}
	id := uuid.NewString()
	c.sent = append(c.sent, Sent{JID: jid, Payload: p, MessageID: id})
	return id, nil
}

// Presence implements transport.Conn.
func (c *Conn) Presence(_ context.Context, jid string, state transport.PresenceState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrConnectionClosed
	}
	c.presence = append(c.presence, PresenceUpdate{JID: jid, State: state})
	return nil
}

// OnNetwork implements transport.Conn. Without a configured directory
// every target is considered registered under its own JID.
func (c *Conn) OnNetwork(_ context.Context, jid string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", false, transport.ErrConnectionClosed
	}
	if c.known == nil {
		return jid, true, nil
	}
	canonical, ok := c.known[jid]
	return canonical, ok, nil
}

// Groups implements transport.Conn.
func (c *Conn) Groups(_ context.Context) ([]transport.GroupInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrConnectionClosed
	}
	out := make([]transport.GroupInfo, len(c.groups))
	copy(out, c.groups)
	return out, nil
}

// Contacts implements transport.Conn.
func (c *Conn) Contacts(_ context.Context) ([]transport.ContactInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrConnectionClosed
	}
	out := make([]transport.ContactInfo, len(c.contacts))
	copy(out, c.contacts)
	return out, nil
}

// Logout implements transport.Conn.
func (c *Conn) Logout(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

// Unsubscribe implements transport.Conn. After it returns no handler
// fires, even for events emitted concurrently.
func (c *Conn) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = true
	c.handlers = transport.EventHandlers{}
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// QueueSendError queues an error for the next Send call. Multiple
// queued errors are consumed in order.
func (c *Conn) QueueSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErrs = append(c.sendErrs, err)
}

// FailSendsTo makes every send addressed to the given JID fail with
// err, while other targets keep succeeding.
func (c *Conn) FailSendsTo(jid string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failTo == nil {
		c.failTo = make(map[string]error)
	}
	c.failTo[jid] = err
}

// SetGroups configures the group listing.
func (c *Conn) SetGroups(groups []transport.GroupInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = groups
}

// SetContacts configures the contact listing.
func (c *Conn) SetContacts(contacts []transport.ContactInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contacts = contacts
}

// SetDirectory configures the JID directory consulted by OnNetwork.
// Keys are queried JIDs, values their canonical form.
func (c *Conn) SetDirectory(known map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = known
}

// SentMessages returns a snapshot of every accepted send.
func (c *Conn) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sent, len(c.sent))
	copy(out, c.sent)
	return out
}

// PresenceUpdates returns a snapshot of published presence verbs.
func (c *Conn) PresenceUpdates() []PresenceUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PresenceUpdate, len(c.presence))
	copy(out, c.presence)
	return out
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// LoggedOut reports whether Logout was called.
func (c *Conn) LoggedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOut
}

// Unsubscribed reports whether Unsubscribe was called.
func (c *Conn) Unsubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribed
}

func (c *Conn) snapshotHandlers() (transport.EventHandlers, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers, !c.unsubscribed
}

// EmitConnecting emits a connecting status transition.
func (c *Conn) EmitConnecting() {
	if h, ok := c.snapshotHandlers(); ok && h.OnStatus != nil {
		h.OnStatus(transport.StatusUpdate{State: transport.StateConnecting})
	}
}

// EmitOpen emits an open status transition.
func (c *Conn) EmitOpen() {
	if h, ok := c.snapshotHandlers(); ok && h.OnStatus != nil {
		h.OnStatus(transport.StatusUpdate{State: transport.StateOpen})
	}
}

// EmitClose emits a close status transition with the given reason.
func (c *Conn) EmitClose(reason transport.DisconnectReason) {
	if h, ok := c.snapshotHandlers(); ok && h.OnStatus != nil {
		h.OnStatus(transport.StatusUpdate{State: transport.StateClosed, Reason: reason})
	}
}

// EmitChallenge emits a pairing challenge.
func (c *Conn) EmitChallenge(challenge string) {
	if h, ok := c.snapshotHandlers(); ok && h.OnChallenge != nil {
		h.OnChallenge(challenge)
	}
}

// EmitMessage emits an inbound message.
func (c *Conn) EmitMessage(msg transport.Message) {
	if h, ok := c.snapshotHandlers(); ok && h.OnMessage != nil {
		h.OnMessage(msg)
	}
}

// EmitCredentials emits a credential rotation.
func (c *Conn) EmitCredentials(blob []byte) {
	if h, ok := c.snapshotHandlers(); ok && h.OnCredentials != nil {
		h.OnCredentials(blob)
	}
}
