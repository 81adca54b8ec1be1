package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wabridge/metrics"
	"github.com/opd-ai/wabridge/transport"
)

// ErrNotFound indicates the referenced session id has no record.
var ErrNotFound = errors.New("session not found")

// Webhook event names emitted by the manager.
const (
	EventStatus  = "session.status"
	EventMessage = "message"
)

// StatusEvent is the payload of an EventStatus dispatch.
type StatusEvent struct {
	Session string `json:"session"`
	Status  string `json:"status"`
}

// MessageEvent is the payload of an EventMessage dispatch.
type MessageEvent struct {
	Session   string `json:"session"`
	From      string `json:"from"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// CredentialStore is the durable credential storage the manager needs:
// enumeration at bootstrap, persistence on rotation events, and
// removal on session deletion.
type CredentialStore interface {
	List() ([]string, error)
	Save(id string, blob []byte) error
	Remove(id string) error
}

// Notifier receives session events. Dispatch must not block; the
// webhook dispatcher satisfies this by delivering asynchronously.
type Notifier interface {
	Dispatch(event string, data any)
}

// Options configures a Manager. The zero value disables credential
// persistence and event dispatch and uses the default backoff curve.
type Options struct {
	Credentials CredentialStore
	Events      Notifier

	// BackoffBase is the delay before the first reconnect attempt;
	// consecutive failures double it. Defaults to one second.
	BackoffBase time.Duration

	// BackoffCap bounds the reconnect delay. Defaults to thirty
	// seconds.
	BackoffCap time.Duration
}

// Manager is the session registry: the single source of truth for
// session existence and status.
type Manager struct {
	dialer transport.Dialer
	creds  CredentialStore
	events Notifier

	backoffBase time.Duration
	backoffCap  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a registry that uses the dialer to construct
// protocol connections.
func NewManager(dialer transport.Dialer, opts *Options) *Manager {
	m := &Manager{
		dialer:      dialer,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
		sessions:    make(map[string]*Session),
	}
	if opts != nil {
		m.creds = opts.Credentials
		m.events = opts.Events
		if opts.BackoffBase > 0 {
			m.backoffBase = opts.BackoffBase
		}
		if opts.BackoffCap > 0 {
			m.backoffCap = opts.BackoffCap
		}
	}
	return m
}

// CreateOrGet returns the record for id, creating it and starting its
// first connection attempt when absent. A second call for an existing
// id returns the record untouched without constructing a new
// connection. A synchronous failure of the first connection attempt
// leaves the record in the error status; the caller observes it
// through the returned record, not an error.
func (m *Manager) CreateOrGet(ctx context.Context, id string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s
	}
	s := &Session{id: id, status: StatusInitializing}
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.SessionsByStatus.WithLabelValues(StatusInitializing.String()).Inc()

	sup := newSupervisor(m, s)
	s.setSupervisor(sup)
	if err := sup.firstDial(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"session": id,
			"error":   err,
		}).Error("Session connection setup failed")
		sup.transition(StatusError)
	}
	return s
}

// Get returns the record for id without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// All returns a snapshot of every session, sorted by id. The snapshot
// never exposes connection handles.
func (m *Manager) All() []Info {
	m.mu.RLock()
	records := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		records = append(records, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(records))
	for _, s := range records {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Delete tears a session down: the pending reconnect timer is
// cancelled, event handlers are removed, a logout is issued, the
// handle closed and the record removed. Errors during logout and close
// are logged and swallowed; deletion always succeeds from the caller's
// perspective. Deleting an absent id is a no-op. After deletion the id
// may be recreated as a brand-new record.
func (m *Manager) Delete(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if sup := s.supervisor(); sup != nil {
		sup.cancel()
	}
	if conn := s.takeConn(); conn != nil {
		conn.Unsubscribe()
		if err := conn.Logout(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"session": id,
				"error":   err,
			}).Error("Logout during session deletion failed")
		}
		if err := conn.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"session": id,
				"error":   err,
			}).Error("Close during session deletion failed")
		}
	}
	metrics.SessionsByStatus.WithLabelValues(s.Status().String()).Dec()

	if m.creds != nil {
		if err := m.creds.Remove(id); err != nil {
			logrus.WithFields(logrus.Fields{
				"session": id,
				"error":   err,
			}).Error("Removing credentials during session deletion failed")
		}
	}
	logrus.WithField("session", id).Info("Session deleted and resources pruned")
}

// Bootstrap reestablishes every session with persisted credentials,
// sequentially, in lexical order. Called once at process start.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if m.creds == nil {
		return nil
	}
	ids, err := m.creds.List()
	if err != nil {
		return err
	}
	sort.Strings(ids)
	logrus.WithField("count", len(ids)).Info("Found existing sessions, reloading")
	for _, id := range ids {
		m.CreateOrGet(ctx, id)
	}
	return nil
}

// Groups lists the groups the session participates in. A session
// without a live connection yields an empty list; connection errors
// are logged and swallowed.
func (m *Manager) Groups(ctx context.Context, id string) ([]transport.GroupInfo, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	conn, _ := s.Live()
	if conn == nil {
		return nil, nil
	}
	groups, err := conn.Groups(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"session": id,
			"error":   err,
		}).Error("Fetching groups failed")
		return nil, nil
	}
	return groups, nil
}

// Contacts lists the session's known contacts, empty when the engine
// keeps no contact store.
func (m *Manager) Contacts(ctx context.Context, id string) ([]transport.ContactInfo, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	conn, _ := s.Live()
	if conn == nil {
		return nil, nil
	}
	contacts, err := conn.Contacts(ctx)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"session": id,
			"error":   err,
		}).Error("Fetching contacts failed")
		return nil, nil
	}
	return contacts, nil
}

// Shutdown stops every supervisor and closes every live connection
// without logging out, preserving credentials for the next start.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	records := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		records = append(records, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range records {
		if sup := s.supervisor(); sup != nil {
			sup.cancel()
		}
		if conn := s.takeConn(); conn != nil {
			conn.Unsubscribe()
			if err := conn.Close(); err != nil {
				logrus.WithFields(logrus.Fields{
					"session": s.ID(),
					"error":   err,
				}).Error("Close during shutdown failed")
			}
		}
		metrics.SessionsByStatus.WithLabelValues(s.Status().String()).Dec()
	}
	logrus.WithField("count", len(records)).Info("Session manager shut down")
}

func (m *Manager) notify(event string, data any) {
	if m.events == nil {
		return
	}
	m.events.Dispatch(event, data)
}

// backoff returns the reconnect delay for the given consecutive
// failure count: min(base * 2^retry, cap).
func (m *Manager) backoff(retry int) time.Duration {
	if retry > 30 {
		return m.backoffCap
	}
	d := m.backoffBase << uint(retry)
	if d <= 0 || d > m.backoffCap {
		return m.backoffCap
	}
	return d
}
