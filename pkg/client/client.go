// Package client implements the caller-side stub described in
// SPEC_FULL.md §4.3: handshake-on-first-use, find, call, and close against
// an RPC server speaking the wire protocol in pkg/rpcwire.
package client

import (
	"fmt"
	"net"
	"sync"

	"github.com/Upnishadd/Remote-Procedure-Call/internal/logger"
	"github.com/Upnishadd/Remote-Procedure-Call/pkg/rpcwire"
)

// NativeIntWidth is this client's native signed-integer width in bytes,
// reported to the server during handshake. See
// github.com/Upnishadd/Remote-Procedure-Call/internal/session.NativeIntWidth
// for the server-side counterpart.
const NativeIntWidth = 4

// Handle is an opaque client-side token binding a remote function name to
// its server-assigned id, obtained from Find and consumed by Call.
type Handle struct {
	id uint32
}

// Client owns one connection to an RPC server.
type Client struct {
	conn net.Conn

	mu          sync.Mutex
	handshaken  bool
	serverWidth int // the server's advertised native width, used for client-side range checks
}

// New dials host:port over TCP and returns a Client. The handshake is
// deferred to the first Find or Call, matching SPEC_FULL.md §4.3.
func New(host string, port int) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.Dial("tcp6", addr)
	if err != nil {
		return nil, fmt.Errorf("client dial %s: %w: %w", addr, rpcwire.ErrInit, err)
	}
	return &Client{conn: conn}, nil
}

// ensureHandshake performs the width exchange on first use: read the
// server's native width, then write ours.
func (c *Client) ensureHandshake() error {
	if c.handshaken {
		return nil
	}
	w, err := rpcwire.ReadU8(c.conn)
	if err != nil {
		return &rpcwire.OpError{Op: "handshake", Peer: c.conn.RemoteAddr().String(), Err: fmt.Errorf("%w: %w", rpcwire.ErrTransport, err)}
	}
	if err := rpcwire.WriteU8(c.conn, NativeIntWidth); err != nil {
		return &rpcwire.OpError{Op: "handshake", Peer: c.conn.RemoteAddr().String(), Err: fmt.Errorf("%w: %w", rpcwire.ErrTransport, err)}
	}
	c.serverWidth = int(w)
	c.handshaken = true
	return nil
}

// Find looks up name on the server and returns a Handle bound to its
// server-assigned id, or rpcwire.ErrNotFound if name was never registered.
func (c *Client) Find(name string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureHandshake(); err != nil {
		return Handle{}, err
	}

	peer := c.conn.RemoteAddr().String()
	if err := rpcwire.WriteOpcode(c.conn, rpcwire.OpFind); err != nil {
		return Handle{}, transportErr("find", peer, err)
	}
	if err := rpcwire.WriteNameBuf(c.conn, name); err != nil {
		return Handle{}, transportErr("find", peer, err)
	}

	id, err := rpcwire.ReadU32(c.conn)
	if err != nil {
		return Handle{}, transportErr("find", peer, err)
	}
	if id == rpcwire.NotFoundID {
		logger.Debug("client find miss", "name", name)
		return Handle{}, &rpcwire.OpError{Op: "find", Peer: peer, Err: rpcwire.ErrNotFound}
	}
	return Handle{id: id}, nil
}

// Call pre-validates req against the server's advertised integer width,
// then invokes the function bound to h and returns its response.
//
// Apart from the handshake on first use, which supplies the width to
// validate against, a validation failure writes nothing to the transport
// (SPEC_FULL.md §7).
func (c *Client) Call(h Handle, req rpcwire.Payload) (rpcwire.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureHandshake(); err != nil {
		return rpcwire.Payload{}, err
	}

	peer := c.conn.RemoteAddr().String()
	if err := req.Validate(c.serverWidth); err != nil {
		return rpcwire.Payload{}, &rpcwire.OpError{Op: "call", Peer: peer, Err: err}
	}

	if err := rpcwire.WriteOpcode(c.conn, rpcwire.OpCall); err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}
	if err := rpcwire.WriteU32(c.conn, h.id); err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}
	if err := rpcwire.WritePayload(c.conn, req); err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}

	found, err := rpcwire.ReadU8(c.conn)
	if err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}
	if found == 0 {
		return rpcwire.Payload{}, &rpcwire.OpError{Op: "call", Peer: peer, Err: rpcwire.ErrNotFound}
	}

	valid, err := rpcwire.ReadU8(c.conn)
	if err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}
	if valid == 0 {
		return rpcwire.Payload{}, &rpcwire.OpError{Op: "call", Peer: peer, Err: rpcwire.ErrInvalidResponse}
	}

	resp, err := rpcwire.ReadPayload(c.conn)
	if err != nil {
		return rpcwire.Payload{}, transportErr("call", peer, err)
	}
	return resp, nil
}

// Close sends clos\0 if the handshake has taken place, then releases the
// underlying connection. Before a handshake no opcode is sent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handshaken {
		// Best-effort: a write failure here doesn't change the fact that we're
		// about to close the socket regardless.
		_ = rpcwire.WriteOpcode(c.conn, rpcwire.OpClose)
	}
	return c.conn.Close()
}

// FreePayload releases a Payload returned by Call. Go's garbage collector
// reclaims Payload.Data2 once it is unreferenced, so this is a documented
// no-op kept for parity with the language-neutral library API in
// SPEC_FULL.md §6.2.
func FreePayload(_ *rpcwire.Payload) {}

func transportErr(op, peer string, err error) error {
	return &rpcwire.OpError{Op: op, Peer: peer, Err: fmt.Errorf("%w: %w", rpcwire.ErrTransport, err)}
}
