package client

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upnishadd/Remote-Procedure-Call/pkg/rpcwire"
)

// fakeServerHandshake plays the server side of the width handshake once,
// then blocks until closed, letting tests assert that an invalid Call never
// writes past the handshake.
func fakeServerHandshake(t *testing.T, conn net.Conn, serverWidth uint8) <-chan []byte {
	t.Helper()
	captured := make(chan []byte, 1)
	go func() {
		require.NoError(t, rpcwire.WriteU8(conn, serverWidth))
		_, err := rpcwire.ReadU8(conn) // client's reported width
		if err != nil {
			return
		}
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			captured <- nil
			return
		}
		captured <- buf[:n]
	}()
	return captured
}

func TestCallOversizePayloadNeverTouchesTransport(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	captured := fakeServerHandshake(t, serverConn, 1) // width=1 byte -> tiny cap

	c := &Client{conn: clientConn}
	oversized := rpcwire.NewPayload(1, make([]byte, 300)) // exceeds 2^8 cap for width 1

	_, err := c.Call(Handle{id: 0}, oversized)
	assert.ErrorIs(t, err, rpcwire.ErrOverflow)

	select {
	case b := <-captured:
		t.Fatalf("expected no bytes written past handshake, got %v", b)
	case <-time.After(50 * time.Millisecond):
		// no write observed, as expected
	}
}

func TestFindWireFormat(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		_ = rpcwire.WriteU8(serverConn, 4)
		_, _ = rpcwire.ReadU8(serverConn)

		op, err := rpcwire.ReadOpcode(serverConn)
		if err != nil || op != rpcwire.OpFind {
			return
		}
		name, err := rpcwire.ReadNameBuf(serverConn)
		if err != nil || name != "echo" {
			return
		}
		_ = rpcwire.WriteU32(serverConn, 7)
	}()

	c := &Client{conn: clientConn}
	h, err := c.Find("echo")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), h.id)
}

func TestFindNotFoundSentinel(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		_ = rpcwire.WriteU8(serverConn, 4)
		_, _ = rpcwire.ReadU8(serverConn)
		_, _ = rpcwire.ReadOpcode(serverConn)
		_, _ = rpcwire.ReadNameBuf(serverConn)
		_ = rpcwire.WriteU32(serverConn, rpcwire.NotFoundID)
	}()

	c := &Client{conn: clientConn}
	_, err := c.Find("nope")
	assert.ErrorIs(t, err, rpcwire.ErrNotFound)
}

func TestCloseSendsOpcodeAfterHandshake(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()

	opCh := make(chan string, 1)
	go func() {
		_ = rpcwire.WriteU8(serverConn, 4)
		_, _ = rpcwire.ReadU8(serverConn)
		op, err := rpcwire.ReadOpcode(serverConn)
		if err == nil {
			opCh <- op
		}
	}()

	c := &Client{conn: clientConn}
	require.NoError(t, c.ensureHandshake())
	require.NoError(t, c.Close())

	select {
	case op := <-opCh:
		assert.Equal(t, rpcwire.OpClose, op)
	case <-time.After(time.Second):
		t.Fatal("clos opcode was never observed")
	}
}

func TestCloseBeforeHandshakeSkipsOpcode(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	c := &Client{conn: clientConn}
	require.NoError(t, c.Close())
	assert.NoError(t, serverConn.Close())
}

func TestFreePayloadIsNoop(t *testing.T) {
	p := rpcwire.NewPayload(1, []byte("x"))
	assert.NotPanics(t, func() { FreePayload(&p) })
}
