package wire

import (
	"bytes"
	"testing"
)

func TestWriteFrameThenReadFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, OpRead, []byte{0, 0, 0, 0, 0, 0, 0, 7}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if f.Opcode != OpRead {
		t.Fatalf("opcode = %d, want %d", f.Opcode, OpRead)
	}
	if len(f.Payload) != 8 {
		t.Fatalf("payload length = %d, want 8", len(f.Payload))
	}
}

func TestAckIsExactBytes(t *testing.T) {
	want := []byte{0, 0, 0, 0, 7, 0x6F, 0x6B}
	if !bytes.Equal(Ack, want) {
		t.Fatalf("Ack = %v, want %v", Ack, want)
	}

	var buf bytes.Buffer
	if err := WriteAck(&buf); err != nil {
		t.Fatalf("WriteAck failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("WriteAck wrote %v, want %v", buf.Bytes(), want)
	}
}

func TestReadFrameRejectsShortLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 0, 0, 3}) // length below header size
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error for length < header size")
	}
}

func TestReadFrameRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 0, 0, 13}) // claims 8 byte payload, provides none
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestEncodeDecodeKVEntries(t *testing.T) {
	var payload []byte
	payload = EncodeKV(payload, 7, []byte("alpha"))
	payload = EncodeKV(payload, 42, []byte("beta"))
	payload = EncodeKV(payload, 9, nil)

	entries, err := DecodeKVEntries(payload)
	if err != nil {
		t.Fatalf("DecodeKVEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Key != 7 || string(entries[0].Value) != "alpha" {
		t.Fatalf("entry 0 = %+v, want key=7 value=alpha", entries[0])
	}
	if entries[1].Key != 42 || string(entries[1].Value) != "beta" {
		t.Fatalf("entry 1 = %+v, want key=42 value=beta", entries[1])
	}
	if entries[2].Key != 9 || len(entries[2].Value) != 0 {
		t.Fatalf("entry 2 = %+v, want key=9 empty value", entries[2])
	}
}

func TestDecodeKVEntriesTruncated(t *testing.T) {
	if _, err := DecodeKVEntries([]byte{0, 0, 0, 0, 0, 0, 0, 1}); err == nil {
		t.Fatal("expected error for truncated header")
	}

	var payload []byte
	payload = PutUint64(payload, 1)
	payload = PutUint32(payload, 10) // claims 10 bytes, provides none
	if _, err := DecodeKVEntries(payload); err == nil {
		t.Fatal("expected error for truncated value")
	}
}
