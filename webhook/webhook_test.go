package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitDelivery(t *testing.T, d *Dispatcher) chan error {
	t.Helper()
	ch := make(chan error, 8)
	d.delivered = func(err error) { ch <- err }
	return ch
}

func TestDispatchPostsEnvelope(t *testing.T) {
	type received struct {
		body   []byte
		header http.Header
	}
	got := make(chan received, 1)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, header: r.Header.Clone()}
	}))
	defer sink.Close()

	d := New(sink.URL, nil)
	done := awaitDelivery(t, d)

	d.Dispatch("session.status", map[string]string{"session": "alice", "status": "connected"})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not complete")
	}

	r := <-got
	assert.Equal(t, "application/json", r.header.Get("Content-Type"))
	assert.Equal(t, userAgent, r.header.Get("User-Agent"))
	assert.Empty(t, r.header.Get("X-Webhook-Signature"))

	var env Envelope
	require.NoError(t, json.Unmarshal(r.body, &env))
	assert.Equal(t, "session.status", env.Event)

	// Timestamp must be ISO-8601.
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)
}

func TestDispatchSignsWhenSecretConfigured(t *testing.T) {
	type received struct {
		body      []byte
		signature string
	}
	got := make(chan received, 1)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, signature: r.Header.Get("X-Webhook-Signature")}
	}))
	defer sink.Close()

	d := New(sink.URL, &Options{Secret: "topsecret"})
	done := awaitDelivery(t, d)
	d.Dispatch("message", map[string]string{"text": "hi"})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not complete")
	}

	r := <-got
	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(r.body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.signature)
}

func TestDispatchWithoutSinkIsNoOp(t *testing.T) {
	var calls atomic.Int32
	d := New("", nil)
	d.delivered = func(error) { calls.Add(1) }

	d.Dispatch("session.status", nil)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Enabled())

	// A nil dispatcher is equally inert.
	var nilD *Dispatcher
	assert.NotPanics(t, func() { nilD.Dispatch("x", nil) })
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer sink.Close()

	d := New(sink.URL, nil)
	done := awaitDelivery(t, d)

	// Dispatch must return immediately and never surface the failure.
	start := time.Now()
	d.Dispatch("session.status", nil)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not complete")
	}
}
