package rpcwire

import (
	"io"
)

// Payload is the unit of application data carried in both directions of a
// call: a signed integer and an opaque byte sequence. Data2 is present if
// and only if Data2Len > 0 — constructing a Payload with a mismatched
// Data2/Data2Len pair will fail Validate.
type Payload struct {
	Data1    int64
	Data2Len uint32
	Data2    []byte
}

// NewPayload builds a Payload from data1 and an opaque byte slice, setting
// Data2Len to len(data2) and leaving Data2 nil when data2 is empty — this is
// the only constructor that guarantees the exclusivity invariant holds.
func NewPayload(data1 int64, data2 []byte) Payload {
	p := Payload{Data1: data1, Data2Len: uint32(len(data2))}
	if len(data2) > 0 {
		p.Data2 = data2
	}
	return p
}

// Validate checks a Payload against the negotiated integer width w (in
// bytes), per SPEC_FULL.md §4.6. It enforces the exact signed range
// |data1| fits in a width-w two's-complement integer — i.e.
// -2^(8w-1) <= data1 <= 2^(8w-1)-1 — rather than the looser, source-matching
// `data1 < 2^(8w)` bound; both are permitted by the spec, and the exact
// range was chosen since it is the one an actual width-w integer could hold
// (see DESIGN.md).
func (p Payload) Validate(w int) error {
	if w <= 0 || w > 8 {
		return ErrInvalidArgument
	}
	if (p.Data2Len == 0) != (len(p.Data2) == 0) {
		return ErrInvalidArgument
	}
	if uint32(len(p.Data2)) != p.Data2Len {
		return ErrInvalidArgument
	}

	bits := uint(8 * w)
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if p.Data1 < -limit || p.Data1 > limit-1 {
			return ErrOverflow
		}
	}
	// bits == 64: every int64 value fits; no check needed.

	if p.Data2Len >= MaxPayloadBytes {
		return ErrOverflow
	}
	if bits < 32 && p.Data2Len >= uint32(1)<<bits {
		return ErrOverflow
	}

	return nil
}

// WritePayload encodes p onto w as i64 data1, u32 data2_len, then exactly
// data2_len bytes of data2.
func WritePayload(w io.Writer, p Payload) error {
	if err := WriteI64(w, p.Data1); err != nil {
		return err
	}
	if err := WriteU32(w, p.Data2Len); err != nil {
		return err
	}
	return WriteBytes(w, p.Data2)
}

// ReadPayload decodes a Payload from r: i64 data1, u32 data2_len, then
// exactly data2_len bytes.
func ReadPayload(r io.Reader) (Payload, error) {
	data1, err := ReadI64(r)
	if err != nil {
		return Payload{}, err
	}
	data2Len, err := ReadU32(r)
	if err != nil {
		return Payload{}, err
	}
	data2, err := ReadBytes(r, data2Len)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Data1: data1, Data2Len: data2Len, Data2: data2}, nil
}
