package identity

import "testing"

func TestUUIDRoundTrip(t *testing.T) {
	var uuid [16]byte
	for i := range uuid {
		uuid[i] = byte(i)
	}
	rec := NewUUID("node-7", uuid, FlagTrusted)

	wire, err := rec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, n, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d, want %d", n, len(wire))
	}
	if got.Handle != "node-7" || got.Format != FormatUUID || got.Flags != FlagTrusted {
		t.Fatalf("got %+v", got)
	}
	if string(got.Payload) != string(uuid[:]) {
		t.Fatalf("payload mismatch")
	}
}

func TestOpaquePayloadAndTrailingData(t *testing.T) {
	rec := NewOpaque("sensor-a", []byte{1, 2, 3, 4, 5}, FlagEphemeral)
	wire, err := rec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	trailer := append(append([]byte{}, wire...), 0xff, 0xff)
	got, n, err := Unmarshal(trailer)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("consumed %d, want %d (trailing bytes should be left alone)", n, len(wire))
	}
	if string(got.Payload) != "\x01\x02\x03\x04\x05" {
		t.Fatalf("got payload %v", got.Payload)
	}
}

func TestUUIDWrongPayloadLengthRejected(t *testing.T) {
	rec := &Record{Format: FormatUUID, Handle: "x", Payload: []byte{1, 2, 3}}
	if _, err := rec.Marshal(); err == nil {
		t.Fatalf("expected error for short UUID payload")
	}
}
