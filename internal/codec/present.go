package codec

import (
	"math"
	"strconv"
)

// Presentable rewrites decoded data so encoding/json can marshal it:
// non-finite doubles become the strings "NaN", "Infinity" and "-Infinity".
// Other decoded kinds already have a JSON form.
func Presentable(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = presentValue(v)
	}
	return out
}

func presentValue(v any) any {
	switch x := v.(type) {
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "Infinity"
		case math.IsInf(x, -1):
			return "-Infinity"
		}
		return x
	case int64:
		// Outside the float64-exact range JSON readers lose precision.
		if x > 1<<53 || x < -(1<<53) {
			return strconv.FormatInt(x, 10)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = presentValue(e)
		}
		return out
	case map[string]any:
		return Presentable(x)
	default:
		return v
	}
}
