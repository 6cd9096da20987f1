// Package wire implements the binary frame format every ringkv node
// speaks on the cluster port.
//
// Big idea:
//
// Every message on the wire — client request, peer-to-peer replication,
// membership, fault handling — uses the same five byte header (calls
// between blocks of the same node are direct method calls and are not
// framed):
//
//	[opcode: 1 byte] [length: 4 bytes, big-endian] [payload: length-5 bytes]
//
// `length` is the TOTAL frame size including the header, so a frame with
// no payload at all is exactly 5 bytes. Keeping one header shape for
// every opcode — reads, writes, replication, membership, fault
// handling — means a single ReadFrame/WriteFrame pair serves the whole
// dispatcher; nothing upstream needs to know which opcode it is framing.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the number of bytes before the payload begins.
const HeaderSize = 5

// MaxPayload bounds how large a single frame's payload may be. Real
// traffic here is small key/value pairs and range dumps; this just
// keeps a corrupt length field from making ReadFrame allocate gigabytes.
const MaxPayload = 64 << 20 // 64 MiB

// Ack is the fixed positive-acknowledgement frame: opcode 0, length 7,
// body "ok". Every success path in §4 that doesn't return data uses
// this exact byte sequence.
var Ack = []byte{0, 0, 0, 0, 7, 'o', 'k'}

// Frame is one decoded wire message.
type Frame struct {
	Opcode  byte
	Payload []byte
}

// Opcodes, per spec §4.1's dispatch table.
const (
	OpRead                = 1
	OpWriteStart          = 2
	OpNodeList            = 10
	OpTransferOut         = 11
	OpBackupDump          = 12
	OpJoinAnnounce        = 13
	OpBackupWrite         = 20
	OpBackupBulkWrite     = 21
	OpNeighborDown        = 30
	OpDeannounce          = 31
	OpBackupTransferDrain = 32
	OpLeaderBulkInsert    = 33
	OpClientRead          = 200
	OpClientWrite         = 202
	OpResponse            = 0
)

// ReadFrame reads exactly one framed message from r.
//
// It always reads the 5-byte header first, then reads exactly
// length-5 more bytes for the payload — never more, never less — so
// the connection is left positioned at the start of the next frame
// (or at EOF) for a caller than wants to read a second message on the
// same connection, as the write and client-proxy handshakes do.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[1:5])
	if length < HeaderSize {
		return Frame{}, fmt.Errorf("read frame header: length %d below minimum %d", length, HeaderSize)
	}
	if length-HeaderSize > MaxPayload {
		return Frame{}, fmt.Errorf("read frame header: payload %d exceeds max %d", length-HeaderSize, MaxPayload)
	}

	payload := make([]byte, length-HeaderSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}

	return Frame{Opcode: header[0], Payload: payload}, nil
}

// WriteFrame encodes opcode+payload and writes the whole frame in one
// call, so a half-written frame can never be observed by the peer.
func WriteFrame(w io.Writer, opcode byte, payload []byte) error {
	length := uint32(HeaderSize + len(payload))
	buf := make([]byte, length)
	buf[0] = opcode
	binary.BigEndian.PutUint32(buf[1:5], length)
	copy(buf[5:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// WriteResponse writes an opcode-0 frame wrapping body — the shape
// used by every handler response that carries data (read values,
// range dumps, node lists).
func WriteResponse(w io.Writer, body []byte) error {
	return WriteFrame(w, OpResponse, body)
}

// WriteAck writes the fixed 7-byte positive acknowledgement.
func WriteAck(w io.Writer) error {
	if _, err := w.Write(Ack); err != nil {
		return fmt.Errorf("write ack: %w", err)
	}
	return nil
}

// IsAck reports whether payload is exactly the two-byte "ok" ack body —
// used by callers that already split header from payload via Frame.
func IsAck(f Frame) bool {
	return f.Opcode == OpResponse && len(f.Payload) == 2 && f.Payload[0] == 'o' && f.Payload[1] == 'k'
}

// PutUint64 appends v as 8 big-endian bytes — the KV key encoding used
// throughout §4.
func PutUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// PutUint32 appends v as 4 big-endian bytes — the length-prefix
// encoding used for values inside [key][len][value] triples.
func PutUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// EncodeKV appends a single [key: u64][len: u32][value: len bytes]
// triple used by the transfer, dump, and bulk-insert opcodes.
func EncodeKV(buf []byte, key uint64, value []byte) []byte {
	buf = PutUint64(buf, key)
	buf = PutUint32(buf, uint32(len(value)))
	buf = append(buf, value...)
	return buf
}

// KVEntry is one decoded [key][len][value] triple.
type KVEntry struct {
	Key   uint64
	Value []byte
}

// DecodeKVEntries parses a concatenation of [key][len][value] triples,
// the layout shared by transfer-out, backup-dump, bulk-write, and
// bulk-insert payloads.
func DecodeKVEntries(payload []byte) ([]KVEntry, error) {
	var entries []KVEntry
	i := 0
	for i < len(payload) {
		if i+12 > len(payload) {
			return nil, fmt.Errorf("decode kv entries: truncated header at offset %d", i)
		}
		key := binary.BigEndian.Uint64(payload[i : i+8])
		valueLen := binary.BigEndian.Uint32(payload[i+8 : i+12])
		start := i + 12
		end := start + int(valueLen)
		if end > len(payload) {
			return nil, fmt.Errorf("decode kv entries: truncated value at offset %d", i)
		}
		value := make([]byte, valueLen)
		copy(value, payload[start:end])
		entries = append(entries, KVEntry{Key: key, Value: value})
		i = end
	}
	return entries, nil
}

// Uint64At reads a big-endian u64 out of payload at offset.
func Uint64At(payload []byte, offset int) uint64 {
	return binary.BigEndian.Uint64(payload[offset : offset+8])
}
