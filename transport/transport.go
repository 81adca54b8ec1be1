package transport

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ConnState represents the lifecycle state reported by a connection.
type ConnState uint8

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

// String returns a human-readable name for the connection state.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StatusUpdate describes one lifecycle transition emitted by a
// connection. Reason is meaningful only when State is StateClosed.
type StatusUpdate struct {
	State  ConnState
	Reason DisconnectReason
}

// Message is an inbound message delivered by a connection.
type Message struct {
	ID           string
	From         string
	FromSelf     bool
	Text         string
	ExtendedText string
	ImageCaption string
	VideoCaption string
	Timestamp    time.Time
}

// PlainText returns the first non-empty textual content of the
// message: plain body, extended body, image caption, then video
// caption. It returns the empty string when none apply.
func (m Message) PlainText() string {
	for _, s := range []string{m.Text, m.ExtendedText, m.ImageCaption, m.VideoCaption} {
		if s != "" {
			return s
		}
	}
	return ""
}

// EventHandlers is the fixed set of typed callbacks a connection
// invokes. Handlers are registered once at Dial time and removed as a
// set by Conn.Unsubscribe; a nil handler disables that event.
//
// Within one connection, handlers are invoked sequentially in emission
// order. Implementations must stop invoking handlers after Unsubscribe
// returns.
type EventHandlers struct {
	// OnChallenge delivers a pairing challenge the end user must scan
	// or enter. It can fire repeatedly before a successful open; each
	// challenge supersedes the previous one.
	OnChallenge func(challenge string)

	// OnStatus delivers lifecycle transitions in emission order.
	OnStatus func(update StatusUpdate)

	// OnMessage delivers an inbound message.
	OnMessage func(msg Message)

	// OnCredentials delivers rotated credential material that must be
	// persisted before the next connection attempt.
	OnCredentials func(blob []byte)
}

// PresenceState is a chat presence verb understood by the network.
type PresenceState string

const (
	PresenceComposing PresenceState = "composing"
	PresenceRecording PresenceState = "recording"
	PresencePaused    PresenceState = "paused"
)

// Valid reports whether the presence verb is one the network accepts.
func (p PresenceState) Valid() bool {
	switch p {
	case PresenceComposing, PresenceRecording, PresencePaused:
		return true
	}
	return false
}

// MediaKind identifies the media variant of an outbound payload.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Valid reports whether the media kind is supported.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaVideo, MediaAudio, MediaDocument:
		return true
	}
	return false
}

// Payload is one outbound message. Exactly one of Text, MediaURL or
// VCard is set by the time it reaches a connection; the session layer
// validates this before any send attempt.
type Payload struct {
	Text string

	// Media by reference; the engine fetches the URL itself.
	MediaURL string
	Kind     MediaKind
	FileName string
	Caption  string

	// Contact card.
	VCard       string
	DisplayName string
}

// GroupInfo describes one group the session participates in.
type GroupInfo struct {
	JID          string `json:"jid"`
	Subject      string `json:"subject"`
	Participants int    `json:"participants"`
}

// ContactInfo describes one known contact.
type ContactInfo struct {
	JID  string `json:"jid"`
	Name string `json:"name"`
}

// Conn is a live protocol connection for a single session. A Conn is
// exclusively owned by its session record and is discarded, never
// reused, across reconnect attempts.
type Conn interface {
	// Send delivers one payload to the fully qualified target and
	// returns the protocol-assigned message identifier.
	Send(ctx context.Context, jid string, p Payload) (string, error)

	// Presence publishes a chat presence verb to the target.
	Presence(ctx context.Context, jid string, state PresenceState) error

	// OnNetwork reports whether the target is registered on the
	// network, returning its canonical JID when it is.
	OnNetwork(ctx context.Context, jid string) (string, bool, error)

	// Groups lists all groups the account participates in.
	Groups(ctx context.Context) ([]GroupInfo, error)

	// Contacts lists known contacts, which may be empty when the
	// engine keeps no contact store.
	Contacts(ctx context.Context) ([]ContactInfo, error)

	// Logout invalidates the account's credentials on the network.
	Logout(ctx context.Context) error

	// Unsubscribe removes all event handlers. No handler fires after
	// it returns.
	Unsubscribe()

	// Close tears the connection down without logging out.
	Close() error
}

// Dialer constructs connections. One Dial call produces one Conn with
// the given handlers attached for the Conn's whole lifetime.
type Dialer interface {
	Dial(ctx context.Context, sessionID string, h EventHandlers) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, sessionID string, h EventHandlers) (Conn, error)

// Dial implements Dialer for DialerFunc.
func (f DialerFunc) Dial(ctx context.Context, sessionID string, h EventHandlers) (Conn, error) {
	return f(ctx, sessionID, h)
}

var (
	// ErrConnectionClosed indicates the transport closed mid-operation.
	// Sends failing with this error are retryable.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrStreamErrored indicates the underlying stream failed
	// mid-operation. Equivalent to ErrConnectionClosed for retry
	// purposes.
	ErrStreamErrored = errors.New("stream errored")

	// ErrNotOnNetwork indicates the target is not registered on the
	// network.
	ErrNotOnNetwork = errors.New("target not on network")
)

// IsTransient reports whether a send failure was caused by the
// connection closing mid-flight, as opposed to a validation or logic
// error. Only transient failures are worth retrying. Engines that do
// not wrap the sentinel errors are matched on the upstream error text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrStreamErrored) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Connection Closed") || strings.Contains(msg, "Stream Errored")
}
