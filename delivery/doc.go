// Package delivery serializes outbound message delivery against
// connected sessions.
//
// A single send normalizes the target address, shapes the payload,
// and retries a bounded number of times when the underlying transport
// closes mid-flight. The bulk variant walks an ordered target list
// sequentially with a configurable inter-message delay and collects a
// per-target outcome: one target failing never aborts the rest of the
// batch.
package delivery
