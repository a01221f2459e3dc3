package document

import (
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Normalize converts an arbitrary Go value into the document model. String
// keyed maps become objects with sorted keys, slices become arrays, numbers
// become json.Number, and text marshalers (time.Time, TOML local dates)
// become strings. Structs go through their JSON encoding, so json tags and
// field order apply. Objects are copied, so the result never aliases v.
func Normalize(v any) (Value, error) {
	return normalize(v, 0)
}

func normalize(v any, depth int) (Value, error) {
	if depth >= MaxNesting {
		return nil, malformedf("nesting exceeds %d levels", MaxNesting)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Object:
		if t == nil {
			return nil, nil
		}
		out := NewObject()
		for _, k := range t.keys {
			c, err := normalize(t.fields[k], depth+1)
			if err != nil {
				return nil, err
			}
			out.Set(k, c)
		}
		return out, nil
	case string, bool, json.Number:
		return t, nil
	case float64:
		return floatNumber(t, 64)
	case float32:
		return floatNumber(float64(t), 32)
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return nil, malformedWrap(err, "marshaling text value")
		}
		return string(b), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface(), depth)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []Value{}, nil
		}
		arr := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			c, err := normalize(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, c)
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, malformedf("map key type %s is not a string", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			c, err := normalize(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(k, c)
		}
		return obj, nil
	case reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, malformedWrap(err, "encoding struct value")
		}
		return ParseJSON(data)
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return json.Number(strconv.FormatInt(rv.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return json.Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32:
		return floatNumber(rv.Float(), 32)
	case reflect.Float64:
		return floatNumber(rv.Float(), 64)
	}
	return nil, malformedf("unsupported value of type %T", v)
}

func floatNumber(f float64, bits int) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, malformedf("non-finite number %v", f)
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, bits)), nil
}
