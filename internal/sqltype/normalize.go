package sqltype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

// Normalize converts a raw driver value into the Go representation of kind:
// int64, float64, string (Decimal, String, Enum, Time), bool, time.Time,
// time.Duration or []byte. NULL stays nil.
func Normalize(k Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok && k != Bytes {
		v = string(b)
	}

	switch k {
	case Integer:
		return toInt64(v)
	case Float:
		return toFloat64(v)
	case Decimal:
		return toDecimalString(v)
	case String, Enum, Time:
		return toString(v), nil
	case Bool:
		return toBool(v)
	case Date, Timestamp:
		return toTime(v)
	case Duration:
		seconds, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return time.Duration(seconds * float64(time.Second)), nil
	case Bytes:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func toInt64(v any) (any, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
		return n, nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to integer: %w", n, err)
		}
		if f == math.Trunc(f) {
			return int64(f), nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float: %w", n, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float", v)
}

func toDecimalString(v any) (any, error) {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", v)
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format("15:04:05")
	default:
		return fmt.Sprint(v)
	}
}

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to bool: %w", b, err)
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bool", v)
}

func toTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as timestamp", t)
	}
	return nil, fmt.Errorf("cannot convert %T to timestamp", v)
}
