// Package protocol implements the emulated HTTP, SSH and FTP services.
//
// # Architecture
//
// A Server owns one listener and runs one goroutine per accepted
// connection. Each connection becomes a Session that a Handler drives
// through its protocol state machine:
//
//	HTTP: request line → headers → optional body → response → close
//	SSH:  banner → (username → password → reject) × up to 3 → close
//	FTP:  greeting → command loop → close on QUIT or EOF
//
// Handlers never share connection state. Every completed request unit is
// handed to a Recorder, which fingerprints, classifies and stores it. A
// Recorder failure drops that event and the session keeps responding.
//
// # Lifecycle
//
// Sessions are bounded by an optional idle timeout, refreshed on every
// read and write, and by an optional per-listener connection cap. When the
// serve context is cancelled the listener and every open connection are
// closed at once; an append already in progress still completes because
// recording runs on a context detached from cancellation.
//
// # Security Considerations
//
// Nothing here implements real authentication, key exchange or file
// transfer. Responses are canned; credentials are only recorded.
package protocol
