// Package identity implements the fixed identity record from §6: a
// {length, flags, format, handle, format-specific bytes} header, grounded
// on original_source/src/Identity's layout but left open past the header
// via a Format enum so new identity kinds don't need a wire-format change.
package identity

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format identifies how the bytes following the handle string are shaped.
type Format uint8

const (
	// FormatUUID carries a 16-byte UUID payload.
	FormatUUID Format = iota
	// FormatOpaque carries an arbitrary-length, caller-defined payload.
	FormatOpaque
)

// Flag bits for a Record's 2-byte flags field.
type Flag uint16

const (
	FlagNone      Flag = 0
	FlagEphemeral Flag = 1 << (iota - 1)
	FlagTrusted
)

// Record is a fixed identity record: 2-byte total length, 2-byte flags,
// 1-byte format, a null-terminated handle string, then format-specific
// bytes (16 bytes for FormatUUID; caller-defined for FormatOpaque).
type Record struct {
	Flags   Flag
	Format  Format
	Handle  string
	Payload []byte
}

// NewUUID builds a FormatUUID identity record. payload must be exactly 16
// bytes.
func NewUUID(handle string, payload [16]byte, flags Flag) *Record {
	return &Record{Flags: flags, Format: FormatUUID, Handle: handle, Payload: payload[:]}
}

// NewOpaque builds a FormatOpaque identity record with caller-defined
// payload bytes.
func NewOpaque(handle string, payload []byte, flags Flag) *Record {
	return &Record{Flags: flags, Format: FormatOpaque, Handle: handle, Payload: append([]byte(nil), payload...)}
}

// Marshal encodes the record to its wire form.
func (r *Record) Marshal() ([]byte, error) {
	if r.Format == FormatUUID && len(r.Payload) != 16 {
		return nil, fmt.Errorf("identity: FormatUUID payload must be 16 bytes, got %d", len(r.Payload))
	}
	if err := validateHandle(r.Handle); err != nil {
		return nil, err
	}

	body := make([]byte, 0, 2+1+len(r.Handle)+1+len(r.Payload))
	body = append(body, byte(r.Flags), byte(r.Flags>>8))
	body = append(body, byte(r.Format))
	body = append(body, []byte(r.Handle)...)
	body = append(body, 0)
	body = append(body, r.Payload...)

	total := 2 + len(body)
	out := make([]byte, 2, total)
	binary.LittleEndian.PutUint16(out, uint16(total))
	out = append(out, body...)
	return out, nil
}

func validateHandle(h string) error {
	if bytes.IndexByte([]byte(h), 0) >= 0 {
		return fmt.Errorf("identity: handle must not contain a NUL byte")
	}
	return nil
}

// Unmarshal decodes one identity record from the front of data, returning
// the record and the number of bytes consumed.
func Unmarshal(data []byte) (*Record, int, error) {
	if len(data) < 5 {
		return nil, 0, fmt.Errorf("identity: truncated header (%d bytes)", len(data))
	}
	total := int(binary.LittleEndian.Uint16(data))
	if total > len(data) {
		return nil, 0, fmt.Errorf("identity: record claims %d bytes, only %d available", total, len(data))
	}
	flags := Flag(uint16(data[2]) | uint16(data[3])<<8)
	format := Format(data[4])

	rest := data[5:total]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return nil, 0, fmt.Errorf("identity: handle string is not NUL-terminated")
	}
	handle := string(rest[:nul])
	payload := append([]byte(nil), rest[nul+1:]...)

	if format == FormatUUID && len(payload) != 16 {
		return nil, 0, fmt.Errorf("identity: FormatUUID payload must be 16 bytes, got %d", len(payload))
	}

	return &Record{Flags: flags, Format: format, Handle: handle, Payload: payload}, total, nil
}
