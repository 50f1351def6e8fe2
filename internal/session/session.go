// Package session implements the server-side per-connection state machine
// described in SPEC_FULL.md §4.3: Handshake -> Ready -> Terminated, driven
// entirely by bytes read from the peer.
package session

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/Upnishadd/Remote-Procedure-Call/internal/logger"
	"github.com/Upnishadd/Remote-Procedure-Call/internal/metrics"
	"github.com/Upnishadd/Remote-Procedure-Call/pkg/registry"
	"github.com/Upnishadd/Remote-Procedure-Call/pkg/rpcwire"
)

// NativeIntWidth is this server's native signed-integer width in bytes,
// advertised during the handshake and used for response validation (see
// SPEC_FULL.md §4.6). 4 matches a typical C `int`, which is what a peer
// speaking the original protocol would expect to negotiate against.
const NativeIntWidth = 4

// Session runs the server-side FSM for one accepted connection.
type Session struct {
	conn     net.Conn
	registry *registry.Registry
	metrics  *metrics.Metrics

	peerWidth int // the client's reported native width; recorded, not enforced (see SPEC_FULL.md §9)
}

// New builds a Session around an already-accepted connection. The caller
// transfers ownership of conn: Session closes it when Run returns.
func New(conn net.Conn, reg *registry.Registry, m *metrics.Metrics) *Session {
	return &Session{conn: conn, registry: reg, metrics: m}
}

// Run executes the FSM until the peer sends clos, the transport fails, or
// ctx is found cancelled. ctx is checked only between opcodes; a read that
// is already blocked is not interrupted by cancellation. It always closes
// the underlying connection before returning.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()

	sc := &logger.SessionContext{
		SessionID: uuid.NewString(),
		Peer:      s.conn.RemoteAddr().String(),
	}
	logger.With(sc.Fields()...).Debug("session started")
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	if err := s.handshake(); err != nil {
		logger.With(sc.Fields()...).Warn("handshake failed", "error", err)
		return &rpcwire.OpError{Op: "handshake", Peer: sc.Peer, Err: err}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		done, err := s.readyStep(sc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.With(sc.Fields()...).Debug("session closed by peer")
				return nil
			}
			logger.With(sc.Fields()...).Warn("session transport error", "error", err)
			return &rpcwire.OpError{Op: "ready", Peer: sc.Peer, Err: err}
		}
		if done {
			logger.With(sc.Fields()...).Debug("session closed")
			return nil
		}
	}
}

// handshake writes this server's native width, then reads the peer's
// reported width.
func (s *Session) handshake() error {
	if err := rpcwire.WriteU8(s.conn, NativeIntWidth); err != nil {
		return err
	}
	w, err := rpcwire.ReadU8(s.conn)
	if err != nil {
		return err
	}
	s.peerWidth = int(w)
	return nil
}

// readyStep reads and handles exactly one opcode. It returns done=true once
// the peer has sent clos.
func (s *Session) readyStep(sc *logger.SessionContext) (done bool, err error) {
	op, err := rpcwire.ReadOpcode(s.conn)
	if err != nil {
		return false, err
	}

	switch op {
	case rpcwire.OpFind:
		return false, s.handleFind(sc)
	case rpcwire.OpCall:
		return false, s.handleCall(sc)
	case rpcwire.OpClose:
		return true, nil
	default:
		// Unknown opcode: log and re-read, matching the distilled source's
		// "silently re-read" policy (SPEC_FULL.md §9).
		logger.With(sc.Fields()...).Debug("unknown opcode", "raw", op)
		return false, nil
	}
}

func (s *Session) handleFind(sc *logger.SessionContext) error {
	name, err := rpcwire.ReadNameBuf(s.conn)
	if err != nil {
		return err
	}
	s.metrics.RecordFind()

	id, err := s.registry.FindByName(name)
	if errors.Is(err, rpcwire.ErrNotFound) {
		logger.With(sc.WithOpcode("find").Fields()...).Debug("find miss", "name", name)
		return rpcwire.WriteU32(s.conn, rpcwire.NotFoundID)
	}
	if err != nil {
		return err
	}
	logger.With(sc.WithOpcode("find").Fields()...).Debug("find hit", "name", name, "id", id)
	return rpcwire.WriteU32(s.conn, id)
}

func (s *Session) handleCall(sc *logger.SessionContext) error {
	id, err := rpcwire.ReadU32(s.conn)
	if err != nil {
		return err
	}

	handler, err := s.registry.FindByID(id)
	if errors.Is(err, rpcwire.ErrNotFound) {
		s.metrics.RecordCall(metrics.OutcomeNotFound)
		return rpcwire.WriteU8(s.conn, 0)
	}
	if err != nil {
		return err
	}
	if err := rpcwire.WriteU8(s.conn, 1); err != nil {
		return err
	}

	req, err := rpcwire.ReadPayload(s.conn)
	if err != nil {
		return err
	}

	resp, herr := handler(req)
	if herr != nil {
		logger.With(sc.WithOpcode("call").Fields()...).Debug("handler returned error", "id", id, "error", herr)
		s.metrics.RecordCall(metrics.OutcomeInvalidResponse)
		return rpcwire.WriteU8(s.conn, 0)
	}
	if err := resp.Validate(NativeIntWidth); err != nil {
		logger.With(sc.WithOpcode("call").Fields()...).Debug("handler response failed validation", "id", id, "error", err)
		s.metrics.RecordCall(metrics.OutcomeInvalidResponse)
		return rpcwire.WriteU8(s.conn, 0)
	}

	if err := rpcwire.WriteU8(s.conn, 1); err != nil {
		return err
	}
	s.metrics.RecordCall(metrics.OutcomeOK)
	return rpcwire.WritePayload(s.conn, resp)
}
