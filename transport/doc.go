// Package transport defines the contract between the session layer and
// the external messaging protocol engine.
//
// The engine itself (network handshake, encryption, message framing) is
// deliberately outside this repository. Everything the session layer
// needs from it is expressed by two interfaces:
//
//   - Dialer: constructs one live connection per session, wiring a
//     fixed set of typed event handlers at construction time.
//   - Conn: a live connection that accepts outbound operations and
//     emits lifecycle and message events through those handlers.
//
// Example:
//
//	conn, err := dialer.Dial(ctx, "alice", transport.EventHandlers{
//	    OnChallenge: func(c string) { fmt.Println("scan:", c) },
//	    OnStatus: func(u transport.StatusUpdate) {
//	        fmt.Println("state:", u.State)
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := conn.Send(ctx, "15551234567@s.whatsapp.net", transport.Payload{Text: "hi"})
//
// Close events carry a DisconnectReason mirroring the upstream
// protocol's status codes; Recoverable reports whether the session
// layer may attempt a reconnect for that reason.
package transport
