package conversion

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var transforms = map[string]Transform{
	"int":   ToInt,
	"float": ToFloat,
	"bool":  ToBool,
	"text":  ToText,
	"trim":  stringOp(strings.TrimSpace),
	"upper": stringOp(strings.ToUpper),
	"lower": stringOp(strings.ToLower),
	"date":  ToDate,
}

// LookupTransform returns a named transform.
func LookupTransform(name string) (Transform, error) {
	t, ok := transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q (available: %s)", name, strings.Join(TransformNames(), ", "))
	}
	return t, nil
}

// TransformNames lists the named transforms.
func TransformNames() []string {
	names := make([]string, 0, len(transforms))
	for n := range transforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Chain applies transforms left to right.
func Chain(ts ...Transform) Transform {
	switch len(ts) {
	case 0:
		return nil
	case 1:
		return ts[0]
	}
	return func(v any) (any, error) {
		var err error
		for _, t := range ts {
			if v, err = t(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// Apply converts a raw source value of a column or enum field.
func (f *Field) Apply(v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if f.Kind == FieldEnum && v != nil {
		i, err := ToInt(v)
		if err != nil {
			return nil, fmt.Errorf("enum index: %w", err)
		}
		idx, ok := i.(int64)
		if !ok {
			return nil, nil
		}
		if idx < 0 || idx >= int64(len(f.Enum)) {
			return nil, fmt.Errorf("enum index %d out of range [0, %d)", idx, len(f.Enum))
		}
		v = f.Enum[idx]
	}
	if f.Transform == nil {
		return v, nil
	}
	return f.Transform(v)
}

// ToInt converts integers, integral floats and numeric text to int64.
func ToInt(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, fmt.Errorf("%v overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return ToInt(float64(x))
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case []byte:
		return ToInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", x)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", v)
	}
}

// ToFloat converts numbers and numeric text to float64.
func ToFloat(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case []byte:
		return ToFloat(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", x)
		}
		return f, nil
	default:
		i, err := ToInt(v)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %T to float", v)
		}
		return float64(i.(int64)), nil
	}
}

// ToBool converts booleans, numbers and boolean text.
func ToBool(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case []byte:
		return ToBool(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	default:
		i, err := ToInt(v)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %T to boolean", v)
		}
		return i.(int64) != 0, nil
	}
}

// ToText renders any value as text.
func ToText(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return fmt.Sprint(x), nil
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ToDate parses text dates and keeps only the calendar day.
func ToDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.Format("2006-01-02"), nil
	case []byte:
		return ToDate(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", x)
	default:
		return nil, fmt.Errorf("cannot convert %T to date", v)
	}
}

func stringOp(fn func(string) string) Transform {
	return func(v any) (any, error) {
		switch x := v.(type) {
		case nil:
			return nil, nil
		case string:
			return fn(x), nil
		case []byte:
			return fn(string(x)), nil
		default:
			return v, nil
		}
	}
}
