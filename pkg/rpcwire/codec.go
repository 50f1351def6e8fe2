// Package rpcwire implements the length-prefixed, big-endian binary wire
// protocol shared by the RPC server and client: typed field codecs, the
// Payload type, validation against a negotiated integer width, and the
// sentinel error kinds raised when encoding/decoding fails.
package rpcwire

import (
	"encoding/binary"
	"io"
)

// ReadU8 reads a single byte from r.
func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteU8 writes a single byte to w.
func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// ReadU32 reads a big-endian uint32 from r.
func ReadU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteU32 writes v to w as a big-endian uint32.
func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadI64 reads a big-endian, two's-complement int64 from r.
func ReadI64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// WriteI64 writes v to w as a big-endian, two's-complement int64.
func WriteI64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadBytes reads exactly n bytes from r. A short read surfaces as an error
// rather than silently returning a truncated slice, since a single TCP read
// is never guaranteed to deliver the full amount requested.
func ReadBytes(r io.Reader, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBytes writes b to w in full.
func WriteBytes(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// ReadOpcode reads the fixed-width, five-byte opcode tag.
func ReadOpcode(r io.Reader) (string, error) {
	buf := make([]byte, OpcodeLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteOpcode writes a five-byte opcode tag verbatim.
func WriteOpcode(w io.Writer, op string) error {
	_, err := io.WriteString(w, op)
	return err
}

// WriteNameBuf writes name into the fixed 1024-byte find buffer: the name
// followed by a NUL terminator, then zero-padding to NameBufLen. The
// remainder's contents are unspecified by the wire contract; this
// implementation zero-fills it.
//
// The length of name is not checked here or by Client.Find. A name of
// NameBufLen bytes or more is cut to NameBufLen bytes and sent without a
// terminator; since registered names are at most 1000 bytes, such a name
// never matches a registry entry.
func WriteNameBuf(w io.Writer, name string) error {
	buf := make([]byte, NameBufLen)
	copy(buf, name)
	// buf[len(name)] is already zero (NUL terminator) from make's zero value,
	// as is the rest of the buffer.
	_, err := w.Write(buf)
	return err
}

// ReadNameBuf reads the fixed 1024-byte find buffer and returns the
// NUL-terminated name it carries.
func ReadNameBuf(r io.Reader) (string, error) {
	buf := make([]byte, NameBufLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n]), nil
}
