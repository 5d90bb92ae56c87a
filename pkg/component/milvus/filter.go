package milvus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuildFilter turns equality conditions on metadata keys into a Milvus
// expression such as `metadata["document_name"] == "guide.md"`, joined by
// "and". Keys are sorted so the expression is deterministic.
func BuildFilter(filter map[string]any) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		lit, err := literal(filter[k])
		if err != nil {
			return "", fmt.Errorf("filter %q: %w", k, err)
		}
		parts = append(parts, fmt.Sprintf("%s[%s] == %s", FieldMetadata, strconv.Quote(k), lit))
	}
	return strings.Join(parts, " and "), nil
}

func literal(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
