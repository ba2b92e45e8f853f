package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/autoimport-pro/server/internal/agent/model"
)

var (
	searchStringArgs = []string{"brand", "model", "country", "body_type", "engine_type"}
	searchIntArgs    = []string{"price_min", "price_max", "year_min", "year_max", "mileage_max"}
)

// SanitizeArguments coerces model-produced arguments before execution:
// strings are trimmed, numeric strings become integers and limit is clamped.
// It never fails; unreadable input is passed through for the tool to reject.
func SanitizeArguments(_ context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil || m == nil {
		return arguments, nil
	}

	switch name {
	case ToolSearchCars:
		for _, k := range searchStringArgs {
			sanitizeString(m, k)
		}
		for _, k := range searchIntArgs {
			sanitizeInt(m, k)
		}
		if v, ok := m["limit"]; ok {
			if n, ok := toInt(v); ok {
				m["limit"] = clampInt(n, 1, model.MaxSearchLimit)
			} else {
				delete(m, "limit")
			}
		}
	case ToolPriceRange:
		sanitizeString(m, "brand")
		sanitizeString(m, "model")
	case ToolAvailableBrands:
		m = map[string]any{}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

func sanitizeString(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		if s := strings.TrimSpace(vv); s != "" {
			m[key] = s
			return
		}
		delete(m, key)
	case nil:
		delete(m, key)
	default:
		m[key] = strings.TrimSpace(fmt.Sprint(v))
	}
}

func sanitizeInt(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	if n, ok := toInt(v); ok && n > 0 {
		m[key] = n
		return
	}
	delete(m, key)
}

func toInt(v any) (int, bool) {
	switch vv := v.(type) {
	case float64:
		// JSON numbers decode as float64
		return int(vv), true
	case string:
		s := strings.Join(strings.Fields(vv), "")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// clampInt returns v limited to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
