package typed

import "testing"

func TestGetWideningSucceeds(t *testing.T) {
	v := NewUint8(200)
	i, err := v.GetInt64()
	if err != nil || i != 200 {
		t.Fatalf("GetInt64 = %d, %v", i, err)
	}
	f, err := v.GetFloat64()
	if err != nil || f != 200 {
		t.Fatalf("GetFloat64 = %v, %v", f, err)
	}
}

func TestGetWrongKindFails(t *testing.T) {
	v := NewString("hi")
	if _, err := v.GetInt64(); err == nil {
		t.Fatalf("expected TypeMismatch for string->int")
	}
}

func TestConvertToTypeTruncates(t *testing.T) {
	v := NewInt32(1000)
	lossy, err := v.ConvertToType(KindInt8)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !lossy {
		t.Fatalf("expected lossy truncation of 1000 into int8")
	}
	i, _ := v.GetInt64()
	if i != 127 {
		t.Fatalf("got clamped %d, want 127", i)
	}
}

func TestConvertToTypeLosslessWiden(t *testing.T) {
	v := NewInt8(5)
	lossy, err := v.ConvertToType(KindInt64)
	if err != nil || lossy {
		t.Fatalf("widening int8->int64 should be lossless: lossy=%v err=%v", lossy, err)
	}
}

func TestKVPAppendAndRetrieve(t *testing.T) {
	kvp := New()
	kvp.Append(NewString("alice"), "name")
	kvp.Append(NewInt64(30), "age")

	e, ok := kvp.RetrieveByKey("name")
	if !ok {
		t.Fatalf("expected to find name")
	}
	s, _ := e.Value.GetString()
	if s != "alice" {
		t.Fatalf("got %q, want alice", s)
	}

	if _, ok := kvp.RetrieveByKey("missing"); ok {
		t.Fatalf("expected missing key to report not-found")
	}
}

func TestKVPValueWithIdxAndCollectKeys(t *testing.T) {
	kvp := New()
	kvp.Append(NewBool(true), "flag")
	kvp.Append(NewFloat64(3.5), "ratio")

	v, err := kvp.ValueWithIdx(1)
	if err != nil {
		t.Fatalf("ValueWithIdx: %v", err)
	}
	f, _ := v.GetFloat64()
	if f != 3.5 {
		t.Fatalf("got %v, want 3.5", f)
	}

	keys := kvp.CollectKeys(nil)
	if len(keys) != 2 || keys[0] != "flag" || keys[1] != "ratio" {
		t.Fatalf("got %v, want [flag ratio] in insertion order", keys)
	}
}

func TestKVPCBORRoundTrip(t *testing.T) {
	kvp := New()
	kvp.Append(NewString("hello"), "greeting")
	kvp.Append(NewInt64(-7), "delta")
	kvp.Append(NewUint64(42), "count")
	kvp.Append(NewBool(true), "ok")
	kvp.Append(NewVector3(Vector3{X: 1, Y: 2, Z: 3}), "pos")

	encoded, err := kvp.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := Unserialize(encoded)
	if err != nil {
		t.Fatalf("unserialize: %v", err)
	}
	if decoded.Len() != kvp.Len() {
		t.Fatalf("got %d entries, want %d", decoded.Len(), kvp.Len())
	}

	keys := decoded.CollectKeys(nil)
	want := []string{"greeting", "delta", "count", "ok", "pos"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("key order mismatch at %d: got %q, want %q", i, keys[i], k)
		}
	}

	e, _ := decoded.RetrieveByKey("greeting")
	if s, _ := e.Value.GetString(); s != "hello" {
		t.Fatalf("got greeting=%q, want hello", s)
	}
	e, _ = decoded.RetrieveByKey("delta")
	if i, _ := e.Value.GetInt64(); i != -7 {
		t.Fatalf("got delta=%d, want -7", i)
	}
	e, _ = decoded.RetrieveByKey("pos")
	vec, err := e.Value.GetVector3()
	if err != nil || vec.X != 1 || vec.Y != 2 || vec.Z != 3 {
		t.Fatalf("got pos=%+v err=%v, want {1 2 3}", vec, err)
	}
}

func TestKVPBinaryAndUUIDKindsSurviveRoundTrip(t *testing.T) {
	var u UUID
	for i := range u {
		u[i] = byte(0xA0 + i)
	}
	// Deliberately the same length as a UUID: only the tag may tell them
	// apart on the wire.
	bin := make([]byte, 16)
	for i := range bin {
		bin[i] = byte(i)
	}

	kvp := New()
	kvp.Append(NewBinary(bin), "blob")
	kvp.Append(NewUUID(u), "id")

	encoded, err := kvp.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unserialize(encoded)
	if err != nil {
		t.Fatalf("unserialize: %v", err)
	}

	e, ok := decoded.RetrieveByKey("blob")
	if !ok {
		t.Fatalf("expected blob entry")
	}
	if e.Value.Kind() != KindBinary {
		t.Fatalf("blob decoded as kind %v, want KindBinary", e.Value.Kind())
	}
	if b, _ := e.Value.GetBinary(); string(b) != string(bin) {
		t.Fatalf("blob bytes mismatch")
	}

	e, ok = decoded.RetrieveByKey("id")
	if !ok {
		t.Fatalf("expected id entry")
	}
	if e.Value.Kind() != KindUUID {
		t.Fatalf("id decoded as kind %v, want KindUUID", e.Value.Kind())
	}
	if got, _ := e.Value.GetUUID(); got != u {
		t.Fatalf("uuid mismatch: got %x, want %x", got, u)
	}
}

func TestKVPNestedCBORRoundTrip(t *testing.T) {
	inner := New()
	inner.Append(NewString("nested"), "k")

	outer := New()
	outer.Append(NewKVP(inner), "child")

	encoded, err := outer.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unserialize(encoded)
	if err != nil {
		t.Fatalf("unserialize: %v", err)
	}
	e, ok := decoded.RetrieveByKey("child")
	if !ok {
		t.Fatalf("expected child entry")
	}
	childKVP, err := e.Value.GetKVP()
	if err != nil {
		t.Fatalf("GetKVP: %v", err)
	}
	ce, ok := childKVP.RetrieveByKey("k")
	if !ok {
		t.Fatalf("expected nested key k")
	}
	if s, _ := ce.Value.GetString(); s != "nested" {
		t.Fatalf("got %q, want nested", s)
	}
}
