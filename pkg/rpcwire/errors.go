package rpcwire

import (
	"errors"
	"fmt"
)

// Sentinel errors for the RPC wire contract. Protocol-facing code should wrap
// these with OpError and callers should check them with errors.Is.
var (
	// ErrInvalidArgument indicates a malformed name or an inconsistent payload
	// (e.g. data2Len == 0 with data2 non-nil, or vice versa).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransport indicates a socket read or write failed.
	ErrTransport = errors.New("transport error")

	// ErrNotFound indicates find saw the sentinel id, or call saw the server's
	// "function not found" indicator.
	ErrNotFound = errors.New("not found")

	// ErrInvalidResponse indicates a handler produced no payload, or one that
	// fails validation against the negotiated integer width.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrOverflow indicates a payload exceeds the negotiated integer width or
	// the hard 100,000-byte cap.
	ErrOverflow = errors.New("payload overflow")

	// ErrInit indicates a bind, resolve, socket, or connect failure during
	// server or client construction.
	ErrInit = errors.New("init error")
)

// OpError wraps a sentinel error with the operation and peer that produced it.
//
// errors.Is(err, ErrNotFound) still matches through OpError's Unwrap, so
// callers can branch on the wire-level error kind without caring about the
// operational context attached for logging.
type OpError struct {
	// Op names the operation that failed: "handshake", "ready" (the
	// server's opcode loop), "find", "call".
	Op string

	// Peer is the remote address involved, when known.
	Peer string

	// Err is the wrapped sentinel error.
	Err error
}

func (e *OpError) Error() string {
	if e.Peer == "" {
		return fmt.Sprintf("rpc %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("rpc %s (peer=%s): %s", e.Op, e.Peer, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
