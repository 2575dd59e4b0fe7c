// Package wire implements the varlink wire format: an order-preserving
// JSON value tree, the Request/Reply message types, and the
// NUL-terminated frame codec shared by the client and server state
// machines (kept as its own module rather than duplicated in each, per
// the "shared module, not inheritance" note on polymorphism).
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the JSON type a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Pair is one key/value entry of an Object-kind Value. Object is a
// slice of Pair, not a map, so field insertion order survives an
// encode/decode round trip — required for faithfully echoing
// `object`-typed varlink parameters and for canonical `method`/
// `parameters`/... field ordering on Request/Reply.
type Pair struct {
	Key   string
	Value Value
}

// Value is an order-preserving JSON value tree.
type Value struct {
	Kind Kind

	BoolVal   bool
	NumberVal json.Number
	StringVal string
	ArrayVal  []Value
	ObjectVal []Pair
}

// NullValue is the JSON null value.
var NullValue = Value{Kind: Null}

// IsNull reports whether v is JSON null (including the zero Value).
func (v Value) IsNull() bool { return v.Kind == Null }

// ObjectFrom builds an Object-kind Value from an ordered list of pairs.
func ObjectFrom(pairs ...Pair) Value {
	return Value{Kind: Object, ObjectVal: pairs}
}

// Get returns the value of the first pair with the given key in an
// Object-kind Value.
func (v Value) Get(key string) (Value, bool) {
	for _, p := range v.ObjectVal {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// ParseValue decodes exactly one JSON value from data, preserving
// object key order. It returns an error if data contains anything
// beyond a single value (aside from surrounding whitespace).
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("wire: trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Value{Kind: Null}, nil
	case bool:
		return Value{Kind: Bool, BoolVal: t}, nil
	case json.Number:
		return Value{Kind: Number, NumberVal: t}, nil
	case string:
		return Value{Kind: String, StringVal: t}, nil
	case json.Delim:
		switch t {
		case '[':
			var arr []Value
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Value{Kind: Array, ArrayVal: arr}, nil
		case '{':
			var pairs []Pair
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("wire: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				pairs = append(pairs, Pair{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Value{Kind: Object, ObjectVal: pairs}, nil
		}
	}
	return Value{}, fmt.Errorf("wire: unexpected JSON token %v", tok)
}

// Marshal renders v as JSON, preserving object key order.
func Marshal(v Value) ([]byte, error) {
	var b bytes.Buffer
	if err := writeValue(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, so a Value can be embedded
// directly in a struct encoded by encoding/json (or by a library built
// on it, such as gorilla/rpc/v2/json2) without losing field order.
func (v Value) MarshalJSON() ([]byte, error) { return Marshal(v) }

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func writeValue(b *bytes.Buffer, v Value) error {
	switch v.Kind {
	case Null:
		b.WriteString("null")
	case Bool:
		if v.BoolVal {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Number:
		b.WriteString(v.NumberVal.String())
	case String:
		enc, err := json.Marshal(v.StringVal)
		if err != nil {
			return err
		}
		b.Write(enc)
	case Array:
		b.WriteByte('[')
		for i, e := range v.ArrayVal {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeValue(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, p := range v.ObjectVal {
			if i > 0 {
				b.WriteByte(',')
			}
			key, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			b.Write(key)
			b.WriteByte(':')
			if err := writeValue(b, p.Value); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("wire: invalid value kind %d", v.Kind)
	}
	return nil
}
