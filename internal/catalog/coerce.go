package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Coerce converts a proposed JSON value into the Go value written to the
// field's column. A nil result with a nil error stores NULL.
func Coerce(f Field, v any) (any, error) {
	if v == nil {
		if f.Nullable {
			return nil, nil
		}
		return nil, errors.New("value is required")
	}

	switch f.Type {
	case FieldText:
		return coerceText(f, v)
	case FieldInt:
		return coerceInt(f, v)
	case FieldFloat:
		return coerceFloat(f, v)
	case FieldDate:
		return coerceDate(v)
	case FieldBool:
		return coerceBool(v)
	}
	return nil, fmt.Errorf("unsupported field type %q", f.Type)
}

func coerceText(f Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected text, got %T", v)
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
		return nil, fmt.Errorf("text longer than %d characters", f.MaxLen)
	}
	if len(f.Enum) > 0 {
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(f.Enum, ", "))
	}
	return s, nil
}

func coerceInt(f Field, v any) (any, error) {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case int32:
		n = int64(val)
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.IsNaN(val) {
			return nil, fmt.Errorf("%v is not a whole number", val)
		}
		n = int64(val)
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", val.String())
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", val)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("expected a whole number, got %T", v)
	}
	if err := checkRange(f, float64(n)); err != nil {
		return nil, err
	}
	return n, nil
}

func coerceFloat(f Field, v any) (any, error) {
	var x float64
	switch val := v.(type) {
	case int:
		x = float64(val)
	case int64:
		x = float64(val)
	case float64:
		x = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", val.String())
		}
		x = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", val)
		}
		x = parsed
	default:
		return nil, fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return nil, errors.New("number is not finite")
	}
	if err := checkRange(f, x); err != nil {
		return nil, err
	}
	return x, nil
}

func checkRange(f Field, x float64) error {
	if f.Min != nil && x < *f.Min {
		return fmt.Errorf("%v is below the minimum %v", x, *f.Min)
	}
	if f.Max != nil && x > *f.Max {
		return fmt.Errorf("%v is above the maximum %v", x, *f.Max)
	}
	return nil
}

func coerceDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a date string, got %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("%q is not a date (YYYY-MM-DD)", s)
}

func coerceBool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", val)
		}
		return b, nil
	}
	return nil, fmt.Errorf("expected a boolean, got %T", v)
}
