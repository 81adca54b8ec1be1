package transport

import (
	"errors"
	"fmt"
	"testing"
)

func TestDisconnectReasonRecoverable(t *testing.T) {
	testCases := []struct {
		name        string
		reason      DisconnectReason
		recoverable bool
	}{
		{"Logged out is terminal", ReasonLoggedOut, false},
		{"Forbidden is terminal", ReasonForbidden, false},
		{"Connection lost recovers", ReasonConnectionLost, true},
		{"Connection closed recovers", ReasonConnectionClosed, true},
		{"Connection replaced recovers", ReasonConnectionReplaced, true},
		{"Bad session recovers", ReasonBadSession, true},
		{"Restart required recovers", ReasonRestartRequired, true},
		{"Multidevice mismatch recovers", ReasonMultideviceMismatch, true},
		{"Service unavailable recovers", ReasonServiceUnavailable, true},
		{"Unknown code recovers", ReasonUnknown, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.reason.Recoverable(); got != tc.recoverable {
				t.Errorf("Recoverable(%v) = %v, want %v", tc.reason, got, tc.recoverable)
			}
		})
	}
}

func TestDisconnectReasonString(t *testing.T) {
	if ReasonLoggedOut.String() != "logged out" {
		t.Errorf("unexpected string: %q", ReasonLoggedOut.String())
	}
	if got := DisconnectReason(999).String(); got != "code 999" {
		t.Errorf("unexpected string for unlisted code: %q", got)
	}
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"Nil error", nil, false},
		{"Sentinel connection closed", ErrConnectionClosed, true},
		{"Wrapped connection closed", fmt.Errorf("send: %w", ErrConnectionClosed), true},
		{"Sentinel stream errored", ErrStreamErrored, true},
		{"Upstream text connection closed", errors.New("Connection Closed"), true},
		{"Upstream text stream errored", errors.New("Stream Errored (unknown)"), true},
		{"Validation error", errors.New("invalid jid"), false},
		{"Not on network", ErrNotOnNetwork, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.transient)
			}
		})
	}
}

func TestMessagePlainText(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
		want string
	}{
		{"Plain body wins", Message{Text: "hi", ExtendedText: "ext"}, "hi"},
		{"Extended body second", Message{ExtendedText: "ext", ImageCaption: "img"}, "ext"},
		{"Image caption third", Message{ImageCaption: "img", VideoCaption: "vid"}, "img"},
		{"Video caption last", Message{VideoCaption: "vid"}, "vid"},
		{"Nothing textual", Message{}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.PlainText(); got != tc.want {
				t.Errorf("PlainText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMediaKindValid(t *testing.T) {
	for _, k := range []MediaKind{MediaImage, MediaVideo, MediaAudio, MediaDocument} {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if MediaKind("sticker").Valid() {
		t.Error("expected unknown media kind to be invalid")
	}
	if MediaKind("").Valid() {
		t.Error("expected empty media kind to be invalid")
	}
}

func TestPresenceStateValid(t *testing.T) {
	for _, p := range []PresenceState{PresenceComposing, PresenceRecording, PresencePaused} {
		if !p.Valid() {
			t.Errorf("expected %q to be valid", p)
		}
	}
	if PresenceState("dancing").Valid() {
		t.Error("expected unknown presence state to be invalid")
	}
}
