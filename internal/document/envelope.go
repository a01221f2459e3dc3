package document

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// EnvelopeOpenAttestationV2 identifies an OpenAttestation v2 wrapped document.
const EnvelopeOpenAttestationV2 = "openattestation/v2"

// Unwrap returns the plain data of a wrapped document together with the
// envelope name. Values that are not wrapped are returned unchanged with an
// empty envelope name.
//
// An OpenAttestation v2 document carries its fields under "data" with every
// string salted as "<uuid>:<type>:<value>"; Unwrap strips the salts and
// restores the typed values.
func Unwrap(v Value) (Value, string) {
	root, ok := v.(*Object)
	if !ok {
		return v, ""
	}
	data, _ := root.Get("data")
	sig, _ := root.Get("signature")
	dataObj, ok := data.(*Object)
	if !ok {
		return v, ""
	}
	if _, ok := sig.(*Object); !ok {
		return v, ""
	}
	out, _ := unsalt(dataObj)
	return out, EnvelopeOpenAttestationV2
}

func unsalt(v Value) (Value, bool) {
	switch t := v.(type) {
	case *Object:
		out := NewObject()
		for _, k := range t.keys {
			if c, keep := unsalt(t.fields[k]); keep {
				out.Set(k, c)
			}
		}
		return out, true
	case []Value:
		out := make([]Value, 0, len(t))
		for _, e := range t {
			// An undefined array element serializes as null.
			c, _ := unsalt(e)
			out = append(out, c)
		}
		return out, true
	case string:
		return unsaltString(t)
	}
	return v, true
}

func unsaltString(s string) (Value, bool) {
	salt, rest, ok := strings.Cut(s, ":")
	if !ok {
		return s, true
	}
	if _, err := uuid.Parse(salt); err != nil {
		return s, true
	}
	typ, val, ok := strings.Cut(rest, ":")
	if !ok {
		return s, true
	}
	switch typ {
	case "string":
		return val, true
	case "number":
		var n json.Number
		if err := json.Unmarshal([]byte(val), &n); err != nil {
			return s, true
		}
		return n, true
	case "boolean":
		return val == "true", true
	case "null":
		return nil, true
	case "undefined":
		return nil, false
	}
	return s, true
}
