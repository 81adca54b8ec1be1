package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/wabridge/transport"
)

func TestDialRecordsConnections(t *testing.T) {
	d := NewDialer()

	conn, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	require.NotNil(t, conn)

	assert.Equal(t, 1, d.DialCount("alice"))
	assert.Same(t, conn, transport.Conn(d.Conn("alice")))

	_, err = d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	assert.Equal(t, 2, d.DialCount("alice"))
}

func TestFailNextDial(t *testing.T) {
	d := NewDialer()
	dialErr := errors.New("engine unavailable")
	d.FailNextDial(dialErr)

	_, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	assert.ErrorIs(t, err, dialErr)

	// The queued error is consumed; the next dial succeeds.
	_, err = d.Dial(context.Background(), "alice", transport.EventHandlers{})
	assert.NoError(t, err)
	assert.Equal(t, 1, d.DialCount("alice"))
}

func TestSendAssignsMessageIDs(t *testing.T) {
	d := NewDialer()
	raw, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	conn := raw.(*Conn)

	id1, err := conn.Send(context.Background(), "1@s.whatsapp.net", transport.Payload{Text: "a"})
	require.NoError(t, err)
	id2, err := conn.Send(context.Background(), "2@s.whatsapp.net", transport.Payload{Text: "b"})
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)

	sent := conn.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "1@s.whatsapp.net", sent[0].JID)
	assert.Equal(t, id1, sent[0].MessageID)
}

func TestQueuedSendErrorsConsumeInOrder(t *testing.T) {
	d := NewDialer()
	raw, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	conn := raw.(*Conn)

	conn.QueueSendError(transport.ErrConnectionClosed)
	conn.QueueSendError(transport.ErrStreamErrored)

	_, err = conn.Send(context.Background(), "x@s.whatsapp.net", transport.Payload{Text: "a"})
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	_, err = conn.Send(context.Background(), "x@s.whatsapp.net", transport.Payload{Text: "a"})
	assert.ErrorIs(t, err, transport.ErrStreamErrored)
	_, err = conn.Send(context.Background(), "x@s.whatsapp.net", transport.Payload{Text: "a"})
	assert.NoError(t, err)
}

func TestClosedConnRejectsOperations(t *testing.T) {
	d := NewDialer()
	raw, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	conn := raw.(*Conn)
	require.NoError(t, conn.Close())

	_, err = conn.Send(context.Background(), "x@s.whatsapp.net", transport.Payload{Text: "a"})
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	_, _, err = conn.OnNetwork(context.Background(), "x@s.whatsapp.net")
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
	_, err = conn.Groups(context.Background())
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	d := NewDialer()
	var challenges []string
	var statuses []transport.StatusUpdate
	raw, err := d.Dial(context.Background(), "alice", transport.EventHandlers{
		OnChallenge: func(c string) { challenges = append(challenges, c) },
		OnStatus:    func(u transport.StatusUpdate) { statuses = append(statuses, u) },
	})
	require.NoError(t, err)
	conn := raw.(*Conn)

	conn.EmitChallenge("first")
	conn.EmitOpen()
	conn.Unsubscribe()
	conn.EmitChallenge("after-unsubscribe")
	conn.EmitClose(transport.ReasonConnectionClosed)

	assert.Equal(t, []string{"first"}, challenges)
	require.Len(t, statuses, 1)
	assert.Equal(t, transport.StateOpen, statuses[0].State)
}

func TestOnNetworkDirectory(t *testing.T) {
	d := NewDialer()
	raw, err := d.Dial(context.Background(), "alice", transport.EventHandlers{})
	require.NoError(t, err)
	conn := raw.(*Conn)

	// Default: everyone is registered under their own JID.
	jid, exists, err := conn.OnNetwork(context.Background(), "15551234567@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "15551234567@s.whatsapp.net", jid)

	conn.SetDirectory(map[string]string{
		"15551234567@s.whatsapp.net": "15551234567@s.whatsapp.net",
	})
	_, exists, err = conn.OnNetwork(context.Background(), "0000@s.whatsapp.net")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAutoPairSequence(t *testing.T) {
	d := NewDialer()
	d.AutoPair = true
	d.PairDelay = 5 * time.Millisecond
	d.Challenge = "scan-me"

	events := make(chan string, 8)
	_, err := d.Dial(context.Background(), "alice", transport.EventHandlers{
		OnChallenge: func(c string) { events <- "challenge:" + c },
		OnStatus:    func(u transport.StatusUpdate) { events <- "status:" + u.State.String() },
		OnCredentials: func(blob []byte) {
			if len(blob) > 0 {
				events <- "credentials"
			}
		},
	})
	require.NoError(t, err)

	want := []string{"status:connecting", "challenge:scan-me", "credentials", "status:open"}
	for _, expected := range want {
		select {
		case got := <-events:
			assert.Equal(t, expected, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", expected)
		}
	}
}
