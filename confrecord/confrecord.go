// Package confrecord implements the configuration record format from §6:
// a CBOR two-entry map {record-header, {list-name: {key: value, ...}}}
// whose field list is validated against an enum definition list supplied
// by the caller, coercing or dropping entries per §4.8's conversion rules.
// Grounded on original_source/src/Storage's conf-record persistence and on
// fsm.EnumDefList's {value, label, flags} table shape, generalized here to
// FieldDefList.
package confrecord

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/xtaci/c3p/typed"
)

// FieldDef describes one legal configuration field: its key, its expected
// TypedValue kind, and whether its absence is an error.
type FieldDef struct {
	Key      string
	Kind     typed.Kind
	Required bool
}

// FieldDefList is the table describing every legal field of a config list,
// mirroring fsm.EnumDefList's role for StateMachineT.
type FieldDefList []FieldDef

func (l FieldDefList) find(key string) (FieldDef, bool) {
	for _, d := range l {
		if d.Key == key {
			return d, true
		}
	}
	return FieldDef{}, false
}

// Header is the record-header entry of the persisted map.
type Header struct {
	Version  uint8  `cbor:"version"`
	ListName string `cbor:"list"`
}

// Record pairs a Header with the named field list's KeyValuePair.
type Record struct {
	Header Header
	Fields *typed.KeyValuePair
}

// New returns an empty Record for the named list.
func New(listName string, version uint8) *Record {
	return &Record{Header: Header{Version: version, ListName: listName}, Fields: typed.New()}
}

// Set appends a field in insertion order. It never overwrites: setting an
// existing key adds a duplicate, and duplicates resolve to the first match
// on read, per typed.KeyValuePair.
func (r *Record) Set(key string, v *typed.TypedValue) {
	r.Fields.Append(v, key)
}

// Marshal persists the record as a CBOR two-entry map. The field list is
// embedded via its own order-preserving typed.KeyValuePair encoding
// (carried as an opaque cbor.RawMessage so the outer envelope's key order,
// which the CBOR spec does not mandate be preserved, never disturbs it).
func (r *Record) Marshal() ([]byte, error) {
	headerBytes, err := cbor.Marshal(r.Header)
	if err != nil {
		return nil, errors.Wrap(err, "confrecord: encode header")
	}
	fieldBytes, err := r.Fields.MarshalCBOR()
	if err != nil {
		return nil, errors.Wrap(err, "confrecord: encode fields")
	}
	envelope := map[string]cbor.RawMessage{
		"header":          headerBytes,
		r.Header.ListName: fieldBytes,
	}
	return cbor.Marshal(envelope)
}

// Unmarshal decodes a persisted record without validation; call Validate
// afterward against the caller's FieldDefList.
func Unmarshal(data []byte) (*Record, error) {
	var envelope map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(err, "confrecord: decode envelope")
	}
	headerRaw, ok := envelope["header"]
	if !ok {
		return nil, errors.New("confrecord: missing header entry")
	}
	var header Header
	if err := cbor.Unmarshal(headerRaw, &header); err != nil {
		return nil, errors.Wrap(err, "confrecord: decode header")
	}
	fieldsRaw, ok := envelope[header.ListName]
	if !ok {
		return nil, errors.Errorf("confrecord: missing field list %q", header.ListName)
	}
	fields, err := typed.Unserialize(fieldsRaw)
	if err != nil {
		return nil, errors.Wrap(err, "confrecord: decode fields")
	}
	return &Record{Header: header, Fields: fields}, nil
}

// Validate rebuilds a clean field list against defs: entries matching a
// known key are kept, coerced to the declared kind when their wire kind
// differs (§4.8's convertToType, lossy coercions allowed); unknown keys
// are dropped; a missing Required key is an error.
func (r *Record) Validate(defs FieldDefList) (*typed.KeyValuePair, error) {
	clean := typed.New()
	seen := make(map[string]bool, len(defs))

	r.Fields.Range(func(key string, v *typed.TypedValue) bool {
		def, known := defs.find(key)
		if !known {
			return true // unknown entries dropped
		}
		vv := *v
		if vv.Kind() != def.Kind {
			if _, err := vv.ConvertToType(def.Kind); err != nil {
				return true // wrong-typed entries dropped when no coercion exists
			}
		}
		clean.Append(&vv, key)
		seen[key] = true
		return true
	})

	for _, d := range defs {
		if d.Required && !seen[d.Key] {
			return nil, errors.Errorf("confrecord: missing required field %q", d.Key)
		}
	}
	return clean, nil
}
