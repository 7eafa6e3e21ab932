package lawfirm

import (
	"fmt"
	"strconv"
	"strings"
)

// Arguments arrive as JSON-decoded maps, so numbers are float64 and
// everything is loosely typed. These helpers coerce without panicking.

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func argStringOr(args map[string]interface{}, key, fallback string) string {
	if v := argString(args, key); v != "" {
		return v
	}
	return fallback
}

func argInt(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// argInt64 parses database ids, which the agent may send as JSON
// numbers or as digit strings.
func argInt64(args map[string]interface{}, key string) (int64, error) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", key, v)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%s is required", key)
	}
	return 0, fmt.Errorf("%s has unsupported type %T", key, args[key])
}
