// Package webhook delivers session events to a configured external
// sink.
//
// Delivery is strictly fire-and-forget: each event is posted from a
// detached goroutine with its own timeout, failures are logged and
// never propagated, and the caller is never delayed by a slow or
// unreachable sink. Without a configured sink URL every dispatch is a
// no-op.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wabridge/metrics"
)

const (
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = 60 * time.Second

	userAgent = "wabridge/1.0"
)

// Envelope is the JSON body posted to the sink.
type Envelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Options configures optional dispatcher behavior.
type Options struct {
	// Secret, when non-empty, signs each delivery with an HMAC-SHA256
	// hex digest in the X-Webhook-Signature header.
	Secret string

	// Timeout bounds one delivery attempt. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Client overrides the HTTP client, used by tests.
	Client *http.Client
}

// Dispatcher posts event envelopes to a single sink URL. A nil
// Dispatcher and a Dispatcher without a sink URL are both valid and
// drop every event.
type Dispatcher struct {
	url     string
	secret  string
	timeout time.Duration
	client  *http.Client

	// delivered, when set, is invoked after each delivery attempt with
	// its outcome. Tests use it to synchronize with the detached
	// delivery goroutine.
	delivered func(error)
}

// New creates a dispatcher for the sink URL. An empty URL disables
// dispatch entirely.
func New(url string, opts *Options) *Dispatcher {
	d := &Dispatcher{
		url:     url,
		timeout: DefaultTimeout,
		client:  http.DefaultClient,
	}
	if opts != nil {
		d.secret = opts.Secret
		if opts.Timeout > 0 {
			d.timeout = opts.Timeout
		}
		if opts.Client != nil {
			d.client = opts.Client
		}
	}
	return d
}

// Enabled reports whether a sink is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.url != ""
}

// Dispatch posts the event to the sink from a detached goroutine and
// returns immediately. The outcome is only ever logged.
func (d *Dispatcher) Dispatch(event string, data any) {
	if !d.Enabled() {
		return
	}
	env := Envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
	go d.deliver(env)
}

func (d *Dispatcher) deliver(env Envelope) {
	err := d.post(env)
	if err != nil {
		metrics.WebhookFailures.Inc()
		logrus.WithFields(logrus.Fields{
			"event": env.Event,
			"error": err,
		}).Error("Webhook delivery failed")
	} else {
		metrics.WebhookDeliveries.Inc()
		logrus.WithFields(logrus.Fields{
			"event": env.Event,
		}).Debug("Webhook delivered")
	}
	if d.delivered != nil {
		d.delivered(err)
	}
}

func (d *Dispatcher) post(env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if d.secret != "" {
		req.Header.Set("X-Webhook-Signature", sign(d.secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
