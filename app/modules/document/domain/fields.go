package documentdomain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Fields is the type-specific payload of a document or status. Values are kept
// in their JSON form (float64 numbers, RFC 3339 times, hex object ids) so that
// every storage backend hands callers the same shapes.
type Fields map[string]any

// Normalize converts an arbitrary map or struct into canonical JSON-form Fields.
func Normalize(v any) (Fields, error) {
	if v == nil {
		return Fields{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	if out == nil {
		out = Fields{}
	}
	return out, nil
}

// NormalizeValue converts a single value to its canonical JSON form.
func NormalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return out, nil
}

// MustNormalize is Normalize for values known to be JSON encodable.
func MustNormalize(v any) Fields {
	f, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return f
}

// Decode unmarshals the payload into v.
func (f Fields) Decode(v any) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode fields: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Fields(t).Clone())
	case Fields:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Float returns the numeric value at key, or 0.
func (f Fields) Float(key string) float64 {
	switch n := f[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Int64 returns the numeric value at key truncated to an integer.
func (f Fields) Int64(key string) int64 { return int64(f.Float(key)) }

// String returns the string at key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns the bool at key, or false.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Array returns the array at key, or nil.
func (f Fields) Array(key string) []any {
	a, _ := f[key].([]any)
	return a
}

// Equal compares two normalized values.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Compare orders two normalized values: numbers, then strings, then bools.
// Missing values (nil) sort after everything else.
func Compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// SortedKeys returns the keys of f in lexical order.
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
