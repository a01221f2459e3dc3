package document

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Parse decodes data using the format implied by name's extension:
// .yaml/.yml as YAML, .toml as TOML, anything else as JSON.
func Parse(name string, data []byte) (Value, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a single JSON value, keeping object key order.
// Duplicate keys keep their first position and the last value.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.UseNumber()

	v, err := decodeJSON(dec, 0)
	if err != nil {
		if err == io.EOF {
			if dec.InputOffset() == 0 {
				return nil, malformedf("empty JSON document")
			}
			err = io.ErrUnexpectedEOF
		}
		return nil, malformedWrap(err, "parsing JSON document")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformedf("unexpected data after top-level JSON value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxNesting {
			return nil, malformedf("nesting exceeds %d levels", MaxNesting)
		}
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, malformedf("object key is %T, want string", kt)
				}
				v, err := decodeJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []Value{}
			for dec.More() {
				v, err := decodeJSON(dec, depth+1)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, malformedf("unexpected delimiter %q", rune(t))
	case string, json.Number, bool, nil:
		return t, nil
	}
	return nil, malformedf("unexpected JSON token %T", tok)
}

// ParseYAML decodes the first YAML document in data, keeping mapping order.
// Timestamps and other tagged scalars stay as their source text.
func ParseYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, malformedWrap(err, "parsing YAML document")
	}
	if len(root.Content) == 0 {
		return nil, malformedf("empty YAML document")
	}
	return fromYAML(root.Content[0], 0)
}

func fromYAML(n *yaml.Node, depth int) (Value, error) {
	if depth >= MaxNesting {
		return nil, malformedf("nesting exceeds %d levels", MaxNesting)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0], depth)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, malformedf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := fromYAML(n.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, malformedf("line %d: dangling alias", n.Line)
		}
		return fromYAML(n.Alias, depth+1)
	case yaml.ScalarNode:
		return yamlScalar(n)
	}
	return nil, malformedf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func yamlScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool", "!!int", "!!float":
		var raw any
		if err := n.Decode(&raw); err != nil {
			return nil, malformedWrap(err, "decoding YAML scalar")
		}
		return Normalize(raw)
	default:
		return n.Value, nil
	}
}

// ParseTOML decodes a TOML document. TOML tables carry no usable key order
// once decoded, so their keys are sorted.
func ParseTOML(data []byte) (Value, error) {
	var m map[string]any
	if _, err := toml.Decode(string(bytes.TrimPrefix(data, utf8BOM)), &m); err != nil {
		return nil, malformedWrap(err, "parsing TOML document")
	}
	return Normalize(m)
}
