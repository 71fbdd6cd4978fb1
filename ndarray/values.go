package ndarray

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Normalize converts a coordinate value to one of string, int64, float64 or bool.
func Normalize(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string, int64, float64, bool:
		return t, nil
	case []byte:
		return string(t), nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return float64(t), nil
		}
		return int64(t), nil
	case float32:
		return float64(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return nil, fmt.Errorf("unsupported coordinate value %v (%s)", v, reflect.TypeOf(v))
}

// NormalizeAll normalizes a slice of values, returning a new slice.
func NormalizeAll(values []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(values))
	for i, v := range values {
		n, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// typeRank orders values of different kinds: bool < numbers < strings.
func typeRank(v interface{}) int {
	switch v.(type) {
	case bool:
		return 0
	case int64, float64:
		return 1
	case string:
		return 2
	}
	return 3
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// CompareValues returns -1, 0 or 1.  Numbers compare numerically across int64 and
// float64, NaN sorting last.
func CompareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ta := a.(type) {
	case bool:
		tb := b.(bool)
		switch {
		case ta == tb:
			return 0
		case !ta:
			return -1
		}
		return 1
	case string:
		tb := b.(string)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	case int64:
		if tb, ok := b.(int64); ok {
			switch {
			case ta < tb:
				return -1
			case ta > tb:
				return 1
			}
			return 0
		}
	}
	fa, _ := asFloat(a)
	fb, _ := asFloat(b)
	switch {
	case math.IsNaN(fa) && math.IsNaN(fb):
		return 0
	case math.IsNaN(fa):
		return 1
	case math.IsNaN(fb):
		return -1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// ValuesEqual returns true if two normalized values are equal.  An int64 equals a
// float64 of the same numeric value, and NaN equals NaN.
func ValuesEqual(a, b interface{}) bool {
	if typeRank(a) != typeRank(b) {
		return false
	}
	return CompareValues(a, b) == 0
}

// CompareTuples compares composite keys element by element.
func CompareTuples(a, b []interface{}) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// FormatValue renders a value for display.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "True"
		}
		return "False"
	}
	return fmt.Sprintf("%v", v)
}

// DType names the kind of values held by a coordinate.
func DType(values []interface{}) string {
	if len(values) == 0 {
		return "object"
	}
	kind := ""
	for _, v := range values {
		var k string
		switch v.(type) {
		case string:
			k = "str"
		case int64:
			k = "int64"
		case float64:
			k = "float64"
		case bool:
			k = "bool"
		default:
			k = "object"
		}
		if kind == "" {
			kind = k
		} else if kind != k {
			return "object"
		}
	}
	return kind
}
