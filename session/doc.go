// Package session implements the session lifecycle manager: the
// registry of per-account protocol connections and the per-session
// supervisor that drives pairing, reconnection and teardown.
//
// # Overview
//
// The package provides two cooperating components:
//
//   - Manager: the single source of truth for session existence and
//     status. Creation is idempotent, deletion tears down every
//     resource the session owns, and Bootstrap reestablishes every
//     session that has persisted credentials.
//   - supervisor: one per session, owns the reconnect state machine.
//     It decides from a close reason whether to reconnect, with what
//     backoff, and when to give up permanently.
//
// Example:
//
//	manager := session.NewManager(dialer, &session.Options{
//	    Credentials: store,
//	    Events:      dispatcher,
//	})
//	if err := manager.Bootstrap(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	sess := manager.CreateOrGet(ctx, "alice")
//	fmt.Println(sess.Status())
//
// # Reconnect policy
//
// A close event whose reason is recoverable schedules a reconnect
// after min(2^retryCount, 30) seconds; retryCount resets to zero on a
// successful open. A close caused by logout or rejected credentials is
// terminal: the session must be deleted and recreated to retry. A
// synchronous failure of the very first connection attempt marks the
// session errored without scheduling retries; only asynchronous
// disconnects are recoverable.
package session
