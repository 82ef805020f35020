package esign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Attrs is one node of a parsed attribute tree. Keys keep the order in which
// they were read so that type groupings (recipient types, tab types) iterate in
// declaration order. Values are scalars (string, bool, int, float64, nil),
// nested *Attrs or []any.
type Attrs struct {
	keys   []string
	values map[string]any
}

// NewAttrs returns an empty attribute node
func NewAttrs() *Attrs {
	return &Attrs{values: make(map[string]any)}
}

// AttrsOf builds a node from alternating key/value pairs. It is mostly useful
// in tests and for building small output documents.
func AttrsOf(pairs ...any) *Attrs {
	a := NewAttrs()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("esign: AttrsOf key %v is not a string", pairs[i]))
		}
		a.Set(key, pairs[i+1])
	}
	return a
}

// Len returns the number of keys
func (a *Attrs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the keys in order
func (a *Attrs) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Has reports whether key is present
func (a *Attrs) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a.values[key]
	return ok
}

// Get returns the raw value stored under key
func (a *Attrs) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// String returns the canonical string form of key, or "" when absent
func (a *Attrs) String(key string) string {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return ""
	}
	return Canonical(v)
}

// Node returns the nested node stored under key, or nil
func (a *Attrs) Node(key string) *Attrs {
	v, _ := a.Get(key)
	n, _ := v.(*Attrs)
	return n
}

// List returns the sequence stored under key, or nil
func (a *Attrs) List(key string) []any {
	v, _ := a.Get(key)
	l, _ := v.([]any)
	return l
}

// Set stores value under key, appending the key if it is new
func (a *Attrs) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Delete removes key
func (a *Attrs) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Merge copies every entry of other into a, overwriting existing keys
func (a *Attrs) Merge(other *Attrs) {
	for _, k := range other.Keys() {
		a.Set(k, cloneValue(other.values[k]))
	}
}

// Clone returns a deep copy
func (a *Attrs) Clone() *Attrs {
	if a == nil {
		return nil
	}
	out := &Attrs{
		keys:   make([]string, len(a.keys)),
		values: make(map[string]any, len(a.values)),
	}
	copy(out.keys, a.keys)
	for k, v := range a.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

// Without returns a deep copy with the given keys removed
func (a *Attrs) Without(keys ...string) *Attrs {
	out := a.Clone()
	if out == nil {
		return NewAttrs()
	}
	for _, k := range keys {
		out.Delete(k)
	}
	return out
}

// Only returns a deep copy holding just the given keys, in a's order
func (a *Attrs) Only(keys ...string) *Attrs {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := NewAttrs()
	for _, k := range a.Keys() {
		if want[k] {
			out.Set(k, cloneValue(a.values[k]))
		}
	}
	return out
}

// RenameKeys returns a deep copy with every key in the tree passed through fn
func (a *Attrs) RenameKeys(fn func(string) string) *Attrs {
	if a == nil {
		return nil
	}
	out := NewAttrs()
	for _, k := range a.keys {
		out.Set(fn(k), renameValue(a.values[k], fn))
	}
	return out
}

// ToMap converts the tree into plain maps and slices
func (a *Attrs) ToMap() map[string]any {
	if a == nil {
		return nil
	}
	out := make(map[string]any, len(a.keys))
	for k, v := range a.values {
		out[k] = plainValue(v)
	}
	return out
}

func renameValue(v any, fn func(string) string) any {
	switch t := v.(type) {
	case *Attrs:
		return t.RenameKeys(fn)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = renameValue(item, fn)
		}
		return out
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Attrs:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Attrs:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// Canonical returns the string form used whenever two attribute values are
// compared: strings as-is, booleans as "true"/"false", numbers in their
// shortest decimal form and nil as "".
func Canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// UnmarshalYAML decodes a mapping node keeping key order
func (a *Attrs) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Attrs)
	if !ok {
		return fmt.Errorf("esign: expected a mapping, got %s", kindName(node))
	}
	*a = *decoded
	return nil
}

// MarshalYAML encodes the node as an ordered mapping
func (a *Attrs) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if a == nil {
		return out, nil
	}
	for _, k := range a.keys {
		var value yaml.Node
		if err := value.Encode(a.values[k]); err != nil {
			return nil, fmt.Errorf("esign: encode %q: %w", k, err)
		}
		out.Content = append(out.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&value,
		)
	}
	return out, nil
}

func decodeYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		out := NewAttrs()
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out.Set(node.Content[i].Value, v)
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeYAMLNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("esign: line %d: %w", node.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("esign: unsupported yaml node %s", kindName(node))
	}
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the node as a JSON object in key order
func (a *Attrs) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("esign: encode %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order
func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Attrs)
	if !ok {
		return fmt.Errorf("esign: expected a JSON object")
	}
	*a = *decoded
	return nil
}

// DecodeJSON reads one JSON object from r
func DecodeJSON(r io.Reader) (*Attrs, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	decoded, ok := v.(*Attrs)
	if !ok {
		return nil, fmt.Errorf("esign: expected a JSON object")
	}
	return decoded, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := NewAttrs()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("esign: unexpected object key %v", keyTok)
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		case '[':
			out := make([]any, 0)
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		default:
			return nil, fmt.Errorf("esign: unexpected delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}
