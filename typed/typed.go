// Package typed implements TypedValue and KeyValuePair (§4.8): a closed-set
// discriminated value type and a singly-linked, insertion-ordered list of
// keyed values, with CBOR (de)serialization via github.com/fxamacker/cbor/v2
// per §6's wire format ("CBOR map with string keys and typed values").
//
// fxamacker/cbor decodes a CBOR map into an unordered Go map, which would
// lose KeyValuePair's insertion order on a round trip. Rather than drop that
// invariant, this package frames its own map/array headers (mapHeader,
// itemLen) around per-leaf fxamacker/cbor marshal/unmarshal calls, so order
// survives serialize/unserialize exactly as §4.8 requires ("ordered list").
package typed

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/xtaci/c3p/buffer"
)

// Kind identifies which member of the closed TypedValue set is stored.
type Kind int

const (
	KindBool Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindVector3
	KindString
	KindBinary
	KindKVP
	KindBufferRef
	KindUUID
)

// Vector3 is a 3-vector of double-precision scalars, per §3's "3-vectors of
// the same numeric scalars".
type Vector3 struct {
	X, Y, Z float64
}

// UUID is a 16-byte universally unique identifier, consumed opaquely per §3
// ("references ... UUID") — this package does not generate UUIDs, only
// stores and serializes them.
type UUID [16]byte

// cborTagUUID is the IANA-registered CBOR tag for a binary UUID. It keeps a
// 16-byte Binary value and a UUID distinguishable on the wire; without it
// both would decode from a bare byte string.
const cborTagUUID = 37

// ErrTypeMismatch is returned when a getter or conversion would lose
// essential information, per §7's TypeMismatch error kind.
var ErrTypeMismatch = errors.New("typed: wrong type or lossy conversion")

// TypedValue holds exactly one kind from the closed set in §3.
type TypedValue struct {
	kind Kind
	raw  interface{}
}

func newTV(k Kind, raw interface{}) *TypedValue { return &TypedValue{kind: k, raw: raw} }

func NewBool(v bool) *TypedValue         { return newTV(KindBool, v) }
func NewInt8(v int8) *TypedValue         { return newTV(KindInt8, int64(v)) }
func NewInt16(v int16) *TypedValue       { return newTV(KindInt16, int64(v)) }
func NewInt32(v int32) *TypedValue       { return newTV(KindInt32, int64(v)) }
func NewInt64(v int64) *TypedValue       { return newTV(KindInt64, v) }
func NewUint8(v uint8) *TypedValue       { return newTV(KindUint8, uint64(v)) }
func NewUint16(v uint16) *TypedValue     { return newTV(KindUint16, uint64(v)) }
func NewUint32(v uint32) *TypedValue     { return newTV(KindUint32, uint64(v)) }
func NewUint64(v uint64) *TypedValue     { return newTV(KindUint64, v) }
func NewFloat32(v float32) *TypedValue   { return newTV(KindFloat32, float64(v)) }
func NewFloat64(v float64) *TypedValue   { return newTV(KindFloat64, v) }
func NewVector3(v Vector3) *TypedValue   { return newTV(KindVector3, v) }
func NewString(v string) *TypedValue     { return newTV(KindString, v) }
func NewBinary(v []byte) *TypedValue     { return newTV(KindBinary, append([]byte(nil), v...)) }
func NewKVP(v *KeyValuePair) *TypedValue { return newTV(KindKVP, v) }
func NewBufferRef(v *buffer.Chain) *TypedValue {
	return newTV(KindBufferRef, v)
}
func NewUUID(v UUID) *TypedValue { return newTV(KindUUID, v) }

// Kind reports the stored kind.
func (t *TypedValue) Kind() Kind { return t.kind }

func (t *TypedValue) isSignedInt() bool {
	switch t.kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

func (t *TypedValue) isUnsignedInt() bool {
	switch t.kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

func (t *TypedValue) isFloat() bool {
	return t.kind == KindFloat32 || t.kind == KindFloat64
}

// GetBool returns the stored boolean; wrong-kind is a TypeMismatch.
func (t *TypedValue) GetBool() (bool, error) {
	if t.kind != KindBool {
		return false, ErrTypeMismatch
	}
	return t.raw.(bool), nil
}

// GetInt64 widens any integer kind that fits without loss; KindUint64
// values beyond math.MaxInt64 fail as a TypeMismatch.
func (t *TypedValue) GetInt64() (int64, error) {
	switch {
	case t.isSignedInt():
		return t.raw.(int64), nil
	case t.isUnsignedInt():
		u := t.raw.(uint64)
		if u > math.MaxInt64 {
			return 0, ErrTypeMismatch
		}
		return int64(u), nil
	}
	return 0, ErrTypeMismatch
}

// GetUint64 widens any unsigned kind, and any signed kind holding a
// non-negative value.
func (t *TypedValue) GetUint64() (uint64, error) {
	switch {
	case t.isUnsignedInt():
		return t.raw.(uint64), nil
	case t.isSignedInt():
		i := t.raw.(int64)
		if i < 0 {
			return 0, ErrTypeMismatch
		}
		return uint64(i), nil
	}
	return 0, ErrTypeMismatch
}

// GetFloat64 widens any numeric kind (loss of integer precision above 2^53
// is accepted, matching the original's documented float widening).
func (t *TypedValue) GetFloat64() (float64, error) {
	switch {
	case t.isFloat():
		return t.raw.(float64), nil
	case t.isSignedInt():
		return float64(t.raw.(int64)), nil
	case t.isUnsignedInt():
		return float64(t.raw.(uint64)), nil
	}
	return 0, ErrTypeMismatch
}

func (t *TypedValue) GetString() (string, error) {
	if t.kind != KindString {
		return "", ErrTypeMismatch
	}
	return t.raw.(string), nil
}

func (t *TypedValue) GetBinary() ([]byte, error) {
	if t.kind != KindBinary {
		return nil, ErrTypeMismatch
	}
	return t.raw.([]byte), nil
}

func (t *TypedValue) GetVector3() (Vector3, error) {
	if t.kind != KindVector3 {
		return Vector3{}, ErrTypeMismatch
	}
	return t.raw.(Vector3), nil
}

func (t *TypedValue) GetKVP() (*KeyValuePair, error) {
	if t.kind != KindKVP {
		return nil, ErrTypeMismatch
	}
	return t.raw.(*KeyValuePair), nil
}

func (t *TypedValue) GetBufferRef() (*buffer.Chain, error) {
	if t.kind != KindBufferRef {
		return nil, ErrTypeMismatch
	}
	return t.raw.(*buffer.Chain), nil
}

func (t *TypedValue) GetUUID() (UUID, error) {
	if t.kind != KindUUID {
		return UUID{}, ErrTypeMismatch
	}
	return t.raw.(UUID), nil
}

// signedRange reports the [min,max] representable by a signed int kind.
func signedRange(k Kind) (int64, int64) {
	switch k {
	case KindInt8:
		return math.MinInt8, math.MaxInt8
	case KindInt16:
		return math.MinInt16, math.MaxInt16
	case KindInt32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func unsignedMax(k Kind) uint64 {
	switch k {
	case KindUint8:
		return math.MaxUint8
	case KindUint16:
		return math.MaxUint16
	case KindUint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// ConvertToType attempts to coerce the value in place to kind k. It returns
// lossy=true when the conversion succeeded but discarded information (e.g.
// truncation or a fractional remainder), and an error only when the target
// kind cannot represent the value at all ("wrong type").
func (t *TypedValue) ConvertToType(k Kind) (lossy bool, err error) {
	if t.kind == k {
		return false, nil
	}
	switch {
	case k == KindBool:
		switch {
		case t.isSignedInt():
			i, _ := t.GetInt64()
			t.kind, t.raw = KindBool, i != 0
			return i != 0 && i != 1, nil
		case t.isUnsignedInt():
			u, _ := t.GetUint64()
			t.kind, t.raw = KindBool, u != 0
			return u > 1, nil
		}
		return false, ErrTypeMismatch

	case k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64:
		i, err := t.GetInt64()
		fracLost := false
		if err != nil {
			if t.isFloat() {
				f, _ := t.GetFloat64()
				i = int64(f)
				fracLost = float64(i) != f
			} else if t.kind == KindBool {
				b, _ := t.GetBool()
				if b {
					i = 1
				}
			} else {
				return false, ErrTypeMismatch
			}
		}
		lo, hi := signedRange(k)
		clamped := i
		if clamped < lo {
			clamped = lo
		} else if clamped > hi {
			clamped = hi
		}
		t.kind, t.raw = k, clamped
		return clamped != i || fracLost, nil

	case k == KindUint8 || k == KindUint16 || k == KindUint32 || k == KindUint64:
		u, err := t.GetUint64()
		lost := false
		if err != nil {
			if t.isFloat() {
				f, _ := t.GetFloat64()
				if f < 0 {
					u, lost = 0, true
				} else {
					u = uint64(f)
					lost = float64(u) != f
				}
			} else if t.kind == KindBool {
				b, _ := t.GetBool()
				if b {
					u = 1
				}
			} else {
				return false, ErrTypeMismatch
			}
		}
		max := unsignedMax(k)
		if u > max {
			u, lost = max, true
		}
		t.kind, t.raw = k, u
		return lost, nil

	case k == KindFloat32 || k == KindFloat64:
		f, err := t.GetFloat64()
		if err != nil {
			return false, ErrTypeMismatch
		}
		if k == KindFloat32 {
			f32 := float32(f)
			t.kind, t.raw = k, float64(f32)
			return float64(f32) != f, nil
		}
		t.kind, t.raw = k, f
		return false, nil

	case k == KindString:
		return false, ErrTypeMismatch

	default:
		return false, ErrTypeMismatch
	}
}

// exportGo returns a plain Go value suitable for cbor.Marshal of a single
// leaf (scalars, strings, binary, Vector3-as-array, UUID-as-tag-37-bstr). KVP
// values are handled separately by the caller, which recurses into
// MarshalCBORValue.
func (t *TypedValue) exportGo() (interface{}, error) {
	switch t.kind {
	case KindBool:
		return t.raw.(bool), nil
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return t.raw.(int64), nil
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return t.raw.(uint64), nil
	case KindFloat32, KindFloat64:
		return t.raw.(float64), nil
	case KindVector3:
		v := t.raw.(Vector3)
		return [3]float64{v.X, v.Y, v.Z}, nil
	case KindString:
		return t.raw.(string), nil
	case KindBinary:
		return t.raw.([]byte), nil
	case KindUUID:
		u := t.raw.(UUID)
		return cbor.Tag{Number: cborTagUUID, Content: u[:]}, nil
	case KindBufferRef:
		ref := t.raw.(*buffer.Chain)
		return ref.Bytes(), nil
	}
	return nil, fmt.Errorf("typed: kind %d is not a leaf value", t.kind)
}

// MarshalCBORValue encodes this TypedValue as one top-level CBOR item.
// KVP-kind values recurse through KeyValuePair.MarshalCBOR to preserve
// insertion order; every other kind defers to fxamacker/cbor.
func (t *TypedValue) MarshalCBORValue() ([]byte, error) {
	if t.kind == KindKVP {
		return t.raw.(*KeyValuePair).MarshalCBOR()
	}
	goVal, err := t.exportGo()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(goVal)
}

// unmarshalLeaf decodes one CBOR item, deriving the TypedValue kind from
// its CBOR major type. Integers decode to Int64/Uint64, floats to
// Float64, text to String, byte strings to Binary, tag 37 to UUID, arrays
// of 3 floats to Vector3, and maps recurse into KeyValuePair via
// unmarshalKVP.
func unmarshalLeaf(data []byte) (*TypedValue, error) {
	if len(data) == 0 {
		return nil, errors.New("typed: empty CBOR item")
	}
	major := data[0] >> 5
	switch major {
	case 0: // unsigned int
		var u uint64
		if err := cbor.Unmarshal(data, &u); err != nil {
			return nil, err
		}
		return NewUint64(u), nil
	case 1: // negative int
		var i int64
		if err := cbor.Unmarshal(data, &i); err != nil {
			return nil, err
		}
		return NewInt64(i), nil
	case 2:
		var b []byte
		if err := cbor.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return NewBinary(b), nil
	case 3:
		var s string
		if err := cbor.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return NewString(s), nil
	case 4:
		var v [3]float64
		if err := cbor.Unmarshal(data, &v); err == nil {
			return NewVector3(Vector3{X: v[0], Y: v[1], Z: v[2]}), nil
		}
		return nil, errors.New("typed: unsupported CBOR array shape")
	case 5:
		kvp, err := unmarshalKVP(data)
		if err != nil {
			return nil, err
		}
		return NewKVP(kvp), nil
	case 6:
		var tag cbor.RawTag
		if err := cbor.Unmarshal(data, &tag); err != nil {
			return nil, err
		}
		if tag.Number != cborTagUUID {
			return nil, fmt.Errorf("typed: unsupported CBOR tag %d", tag.Number)
		}
		var b []byte
		if err := cbor.Unmarshal(tag.Content, &b); err != nil {
			return nil, err
		}
		if len(b) != 16 {
			return nil, fmt.Errorf("typed: UUID tag wraps %d bytes, want 16", len(b))
		}
		var u UUID
		copy(u[:], b)
		return NewUUID(u), nil
	case 7:
		var b bool
		if err := cbor.Unmarshal(data, &b); err == nil {
			return NewBool(b), nil
		}
		var f float64
		if err := cbor.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return NewFloat64(f), nil
	}
	return nil, fmt.Errorf("typed: unsupported CBOR major type %d", major)
}
