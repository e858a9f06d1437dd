package base64

import (
	"testing"

	"github.com/xtaci/c3p/buffer"
	"github.com/xtaci/c3p/pipeline"
)

func TestRoundTrip256Bytes(t *testing.T) {
	original := make([]byte, 256)
	for i := range original {
		original[i] = byte(i)
	}

	encSink := pipeline.NewStringBuilderSink(0)
	enc := NewEncoder(encSink)
	if _, err := pipeline.Push(enc, buffer.FromBytes(original)); err != nil {
		t.Fatalf("encode push: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	encodedLen := encSink.Len()
	wantLen := ((len(original) + 2) / 3) * 4
	if encodedLen != wantLen {
		t.Fatalf("encoded length = %d, want %d", encodedLen, wantLen)
	}

	decSink := pipeline.NewStringBuilderSink(0)
	dec := NewDecoder(decSink)
	if _, err := pipeline.Push(dec, buffer.FromBytes([]byte(encSink.String()))); err != nil {
		t.Fatalf("decode push: %v", err)
	}

	if decSink.String() != string(original) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(decSink.String()), len(original))
	}
}

func TestDecoderRejectsInvalidCharacters(t *testing.T) {
	decSink := pipeline.NewStringBuilderSink(0)
	dec := NewDecoder(decSink)
	_, err := pipeline.Push(dec, buffer.FromBytes([]byte("not!base64!!")))
	if err == nil {
		t.Fatalf("expected strict decode to reject invalid characters")
	}
}

func TestDecoderLaxModeStripsInvalidCharacters(t *testing.T) {
	dec2Sink := pipeline.NewStringBuilderSink(0)
	dec := NewDecoder(dec2Sink)
	dec.Lax = true

	encSink := pipeline.NewStringBuilderSink(0)
	enc := NewEncoder(encSink)
	pipeline.Push(enc, buffer.FromBytes([]byte("hello world")))
	enc.Flush()

	noisy := encSink.String()[:2] + "!!" + encSink.String()[2:]
	if _, err := pipeline.Push(dec, buffer.FromBytes([]byte(noisy))); err != nil {
		t.Fatalf("lax decode should tolerate stray characters: %v", err)
	}
	if dec2Sink.String() != "hello world" {
		t.Fatalf("lax decode = %q, want %q", dec2Sink.String(), "hello world")
	}
}

func TestEncoderSplitsAcrossSmallDownstreamCapacity(t *testing.T) {
	smallSink := pipeline.NewStringBuilderSink(4) // room for exactly one 4-character group
	enc := NewEncoder(smallSink)
	src := pipeline.NewTestSource(enc, 1)
	if _, err := src.Drive([]byte("abc")); err != nil {
		t.Fatalf("drive: %v", err)
	}
	if smallSink.String() != "YWJj" {
		t.Fatalf("encoded = %q, want YWJj", smallSink.String())
	}
}
