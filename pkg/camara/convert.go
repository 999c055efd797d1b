package camara

import (
	"fmt"
	"strconv"
	"strings"
)

// The paginated endpoints deliver untyped items; these helpers pull the
// fields out tolerantly, since numeric fields arrive as JSON numbers in
// some payloads and strings in others.

func getString(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getInt64(item map[string]any, key string) int64 {
	switch v := item[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func getFloat(item map[string]any, key string) float64 {
	switch v := item[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(strings.Replace(strings.TrimSpace(v), ",", ".", 1), 64)
		return f
	default:
		return 0
	}
}

// memberIDFromURI extracts the trailing numeric id of a member URI, e.g.
// ".../deputados/204554". Non-member URIs yield zero.
func memberIDFromURI(uri string) int64 {
	if uri == "" || !strings.Contains(uri, "/deputados/") {
		return 0
	}
	idx := strings.LastIndex(uri, "/")
	n, _ := strconv.ParseInt(uri[idx+1:], 10, 64)
	return n
}
