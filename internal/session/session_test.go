package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upnishadd/Remote-Procedure-Call/pkg/registry"
	"github.com/Upnishadd/Remote-Procedure-Call/pkg/rpcwire"
)

// newPipe connects an in-memory pipe, starts a Session on its server end in
// the background, and returns the client end plus a channel that receives
// the Session's Run result.
func newPipe(t *testing.T, reg *registry.Registry) (client net.Conn, done <-chan error) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	ch := make(chan error, 1)
	go func() {
		ch <- New(serverConn, reg, nil).Run(context.Background())
	}()
	t.Cleanup(func() { clientConn.Close() })
	return clientConn, ch
}

func clientHandshake(t *testing.T, conn net.Conn) {
	t.Helper()
	_, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.NoError(t, rpcwire.WriteU8(conn, 4))
}

func TestSessionHandshake(t *testing.T) {
	reg := registry.New()
	conn, _ := newPipe(t, reg)

	width, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	assert.Equal(t, uint8(NativeIntWidth), width)
	require.NoError(t, rpcwire.WriteU8(conn, 8))
}

func TestSessionFindMiss(t *testing.T) {
	reg := registry.New()
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpFind))
	require.NoError(t, rpcwire.WriteNameBuf(conn, "missing"))

	id, err := rpcwire.ReadU32(conn)
	require.NoError(t, err)
	assert.Equal(t, rpcwire.NotFoundID, id)
}

func TestSessionFindHit(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("echo", func(p rpcwire.Payload) (rpcwire.Payload, error) { return p, nil }))
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpFind))
	require.NoError(t, rpcwire.WriteNameBuf(conn, "echo"))

	id, err := rpcwire.ReadU32(conn)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
}

func TestSessionCallEcho(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("echo", func(p rpcwire.Payload) (rpcwire.Payload, error) { return p, nil }))
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpCall))
	require.NoError(t, rpcwire.WriteU32(conn, 0))
	req := rpcwire.NewPayload(42, []byte{0x61, 0x62, 0x63})
	require.NoError(t, rpcwire.WritePayload(conn, req))

	found, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.Equal(t, uint8(1), found)

	valid, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.Equal(t, uint8(1), valid)

	resp, err := rpcwire.ReadPayload(conn)
	require.NoError(t, err)
	assert.Equal(t, req, resp)
}

func TestSessionCallUnknownID(t *testing.T) {
	reg := registry.New()
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpCall))
	require.NoError(t, rpcwire.WriteU32(conn, 99))

	found, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), found)
}

func TestSessionCallInvalidHandlerResponse(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("bad", func(rpcwire.Payload) (rpcwire.Payload, error) {
		return rpcwire.Payload{Data2Len: 5, Data2: nil}, nil
	}))
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpCall))
	require.NoError(t, rpcwire.WriteU32(conn, 0))
	require.NoError(t, rpcwire.WritePayload(conn, rpcwire.NewPayload(1, nil)))

	found, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.Equal(t, uint8(1), found)

	valid, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), valid)
}

func TestSessionStaysReadyAfterInvalidResponse(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("bad", func(rpcwire.Payload) (rpcwire.Payload, error) {
		return rpcwire.Payload{Data2Len: 5, Data2: nil}, nil
	}))
	require.NoError(t, reg.Register("echo", func(p rpcwire.Payload) (rpcwire.Payload, error) { return p, nil }))
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	// First call fails validation...
	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpCall))
	require.NoError(t, rpcwire.WriteU32(conn, 0))
	require.NoError(t, rpcwire.WritePayload(conn, rpcwire.NewPayload(1, nil)))
	found, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.Equal(t, uint8(1), found)
	valid, err := rpcwire.ReadU8(conn)
	require.NoError(t, err)
	require.Equal(t, uint8(0), valid)

	// ...but the session must still be in Ready for the next opcode.
	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpCall))
	require.NoError(t, rpcwire.WriteU32(conn, 1))
	require.NoError(t, rpcwire.WritePayload(conn, rpcwire.NewPayload(7, nil)))
	found, err = rpcwire.ReadU8(conn)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), found)
}

func TestSessionClose(t *testing.T) {
	reg := registry.New()
	conn, done := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpClose))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate after clos")
	}
}

func TestSessionUnknownOpcodeIsIgnored(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("echo", func(p rpcwire.Payload) (rpcwire.Payload, error) { return p, nil }))
	conn, _ := newPipe(t, reg)
	clientHandshake(t, conn)

	require.NoError(t, rpcwire.WriteOpcode(conn, "bogu\x00"))
	require.NoError(t, rpcwire.WriteOpcode(conn, rpcwire.OpFind))
	require.NoError(t, rpcwire.WriteNameBuf(conn, "echo"))

	id, err := rpcwire.ReadU32(conn)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
}
