package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
)

// MaxNesting bounds container nesting accepted by the parsers and by
// Normalize. Flattening applies its own, usually smaller, bound.
const MaxNesting = 10000

// ErrMalformed marks any failure to turn an input into a document.
var ErrMalformed = errors.New("malformed document")

// Value is a document node: *Object, []Value, string, json.Number, bool or nil.
type Value = any

// Object is an ordered string-keyed mapping.
type Object struct {
	keys   []string
	fields map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Set assigns key. A new key is appended to the key order; an existing key
// keeps its position and takes the new value.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Equal reports whether both objects hold equal values under the same keys
// in the same order.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o.Len() == other.Len()
	}
	if !slices.Equal(o.keys, other.keys) {
		return false
	}
	for _, k := range o.keys {
		if !Equal(o.fields[k], other.fields[k]) {
			return false
		}
	}
	return true
}

// Equal compares two document values structurally.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		return ok && x.Equal(y)
	case []Value:
		y, ok := b.([]Value)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case string, json.Number, bool, nil:
		return a == b
	}
	return false
}

// MarshalJSON encodes the object with keys in document order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Kind names the shape of v for messages: object, array, string, number,
// boolean, null, or the Go type for anything outside the model.
func Kind(v Value) string {
	switch v.(type) {
	case *Object:
		return "object"
	case []Value:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsContainer reports whether v is an object or an array.
func IsContainer(v Value) bool {
	switch v.(type) {
	case *Object, []Value:
		return true
	}
	return false
}

func malformedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformed)
}

func malformedWrap(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrMalformed)
}
