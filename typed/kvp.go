package typed

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Entry is one node of a KeyValuePair list.
type Entry struct {
	key    string
	hasKey bool
	Value  *TypedValue
	next   *Entry
}

// Key returns the entry's key and whether one was set.
func (e *Entry) Key() (string, bool) { return e.key, e.hasKey }

// KeyValuePair is a singly-linked, insertion-ordered list of Entry, per
// §3/§4.8. Keys may repeat; retrieval by key returns the first match.
type KeyValuePair struct {
	head  *Entry
	tail  *Entry
	count int
}

// New returns an empty KeyValuePair.
func New() *KeyValuePair { return &KeyValuePair{} }

// Len reports the number of entries.
func (k *KeyValuePair) Len() int { return k.count }

// Append inserts value at the tail, with an optional key ("" means no
// key), and returns the new entry.
func (k *KeyValuePair) Append(value *TypedValue, key string) *Entry {
	e := &Entry{key: key, hasKey: key != "", Value: value}
	if k.tail == nil {
		k.head, k.tail = e, e
	} else {
		k.tail.next = e
		k.tail = e
	}
	k.count++
	return e
}

// RetrieveByKey returns the first entry whose key case-sensitively equals
// key.
func (k *KeyValuePair) RetrieveByKey(key string) (*Entry, bool) {
	for e := k.head; e != nil; e = e.next {
		if e.hasKey && e.key == key {
			return e, true
		}
	}
	return nil, false
}

// ValueWithKey copies/converts the value under key into out's kind. A
// missing key is reported via the returned error.
func (k *KeyValuePair) ValueWithKey(key string, outKind Kind) (*TypedValue, error) {
	e, ok := k.RetrieveByKey(key)
	if !ok {
		return nil, fmt.Errorf("typed: no entry with key %q", key)
	}
	out := *e.Value
	if out.kind != outKind {
		if _, err := out.ConvertToType(outKind); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// ValueWithIdx addresses the entry at insertion-order index i.
func (k *KeyValuePair) ValueWithIdx(i int) (*TypedValue, error) {
	if i < 0 {
		return nil, fmt.Errorf("typed: negative index %d", i)
	}
	idx := 0
	for e := k.head; e != nil; e = e.next {
		if idx == i {
			return e.Value, nil
		}
		idx++
	}
	return nil, fmt.Errorf("typed: index %d out of range (len %d)", i, k.count)
}

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (k *KeyValuePair) Range(fn func(key string, v *TypedValue) bool) {
	for e := k.head; e != nil; e = e.next {
		if !fn(e.key, e.Value) {
			return
		}
	}
}

// CollectKeys appends each entry's key (empty string for unkeyed entries)
// in insertion order.
func (k *KeyValuePair) CollectKeys(out []string) []string {
	for e := k.head; e != nil; e = e.next {
		out = append(out, e.key)
	}
	return out
}

// mapHeader returns the CBOR header bytes for a map (major type 5) of n
// pairs, per RFC 8949 §3's major-type/argument encoding.
func mapHeader(n uint64) []byte {
	return cborHeader(5, n)
}

func cborHeader(major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return []byte{m | byte(n)}
	case n <= 0xff:
		return []byte{m | 24, byte(n)}
	case n <= 0xffff:
		return []byte{m | 25, byte(n >> 8), byte(n)}
	case n <= 0xffffffff:
		return []byte{m | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{m | 27,
			byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
			byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// MarshalCBOR emits a CBOR map of key -> value in insertion order, per §6
// ("CBOR map with string keys and typed values"). Unkeyed entries are
// serialized under the empty-string key.
func (k *KeyValuePair) MarshalCBOR() ([]byte, error) {
	buf := append([]byte(nil), mapHeader(uint64(k.count))...)
	for e := k.head; e != nil; e = e.next {
		keyBytes, err := cbor.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		valBytes, err := e.Value.MarshalCBORValue()
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	return buf, nil
}

// headerInfo decodes one CBOR item's leading bytes into its major type and
// argument value, per RFC 8949 §3. Indefinite-length items (additional
// info 31) are not produced by this package's encoder and are rejected.
func headerInfo(data []byte) (major byte, extra uint64, headerLen int, err error) {
	if len(data) == 0 {
		return 0, 0, 0, errors.New("typed: truncated CBOR header")
	}
	b0 := data[0]
	major = b0 >> 5
	ai := b0 & 0x1f
	switch {
	case ai < 24:
		return major, uint64(ai), 1, nil
	case ai == 24:
		if len(data) < 2 {
			return 0, 0, 0, errors.New("typed: truncated CBOR header")
		}
		return major, uint64(data[1]), 2, nil
	case ai == 25:
		if len(data) < 3 {
			return 0, 0, 0, errors.New("typed: truncated CBOR header")
		}
		return major, uint64(data[1])<<8 | uint64(data[2]), 3, nil
	case ai == 26:
		if len(data) < 5 {
			return 0, 0, 0, errors.New("typed: truncated CBOR header")
		}
		var v uint64
		for i := 1; i <= 4; i++ {
			v = v<<8 | uint64(data[i])
		}
		return major, v, 5, nil
	case ai == 27:
		if len(data) < 9 {
			return 0, 0, 0, errors.New("typed: truncated CBOR header")
		}
		var v uint64
		for i := 1; i <= 8; i++ {
			v = v<<8 | uint64(data[i])
		}
		return major, v, 9, nil
	default:
		return 0, 0, 0, fmt.Errorf("typed: unsupported CBOR additional info %d", ai)
	}
}

// itemLen reports how many bytes the single top-level CBOR item at the
// start of data occupies, recursing into arrays, maps, and tags. This lets
// unmarshalKVP walk a sequence of items without a full general-purpose
// CBOR decoder.
func itemLen(data []byte) (int, error) {
	major, extra, hlen, err := headerInfo(data)
	if err != nil {
		return 0, err
	}
	switch major {
	case 0, 1, 7:
		return hlen, nil
	case 2, 3:
		end := hlen + int(extra)
		if end > len(data) {
			return 0, errors.New("typed: truncated CBOR string")
		}
		return end, nil
	case 4:
		pos := hlen
		for i := uint64(0); i < extra; i++ {
			l, err := itemLen(data[pos:])
			if err != nil {
				return 0, err
			}
			pos += l
		}
		return pos, nil
	case 5:
		pos := hlen
		for i := uint64(0); i < extra*2; i++ {
			l, err := itemLen(data[pos:])
			if err != nil {
				return 0, err
			}
			pos += l
		}
		return pos, nil
	case 6:
		l, err := itemLen(data[hlen:])
		if err != nil {
			return 0, err
		}
		return hlen + l, nil
	default:
		return 0, fmt.Errorf("typed: unsupported CBOR major type %d", major)
	}
}

// unmarshalKVP decodes a CBOR map item into a KeyValuePair, preserving
// wire order as the insertion order.
func unmarshalKVP(data []byte) (*KeyValuePair, error) {
	major, extra, hlen, err := headerInfo(data)
	if err != nil {
		return nil, err
	}
	if major != 5 {
		return nil, fmt.Errorf("typed: expected CBOR map, got major type %d", major)
	}
	kvp := New()
	pos := hlen
	for i := uint64(0); i < extra; i++ {
		kl, err := itemLen(data[pos:])
		if err != nil {
			return nil, err
		}
		var key string
		if err := cbor.Unmarshal(data[pos:pos+kl], &key); err != nil {
			return nil, err
		}
		pos += kl

		vl, err := itemLen(data[pos:])
		if err != nil {
			return nil, err
		}
		val, err := unmarshalLeaf(data[pos : pos+vl])
		if err != nil {
			return nil, err
		}
		pos += vl

		kvp.Append(val, key)
	}
	return kvp, nil
}

// Unserialize consumes the next top-level CBOR value from data and
// reconstructs the KeyValuePair it encodes, per §4.8.
func Unserialize(data []byte) (*KeyValuePair, error) {
	return unmarshalKVP(data)
}
