package rpcwire

// Opcode tags are literal five-byte strings including the trailing NUL, sent
// by the client to select an action once a session has reached Ready.
const (
	OpFind  = "find\x00"
	OpCall  = "call\x00"
	OpClose = "clos\x00"
)

// OpcodeLen is the fixed width of an opcode tag on the wire.
const OpcodeLen = 5

// NameBufLen is the fixed width of the name buffer sent by find, regardless
// of the registered name's actual length. Preserved for wire compatibility
// with the distilled protocol (see SPEC_FULL.md §9 "Fixed-size name
// transmission").
const NameBufLen = 1024

// NotFoundID is the sentinel id written by find when the name is unknown.
const NotFoundID uint32 = 0xFFFFFFFF

// MaxPayloadBytes is the hard cap on data2_len regardless of negotiated
// integer width.
const MaxPayloadBytes = 100000
