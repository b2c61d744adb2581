package bench

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Metadata is the immutable set of configuration values a task was built
// with. Its string form is independent of insertion order.
type Metadata struct {
	values map[string]any
}

// NewMetadata copies kv; later changes to kv do not affect the result.
func NewMetadata(kv map[string]any) Metadata {
	m := Metadata{values: make(map[string]any, len(kv))}
	for k, v := range kv {
		m.values[k] = v
	}
	return m
}

func (m Metadata) Len() int { return len(m.values) }

// Keys returns the keys in lexicographic order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String joins sorted key=value pairs with ';'.
func (m Metadata) String() string {
	keys := m.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(m.values[k])
	}
	return strings.Join(parts, ";")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
