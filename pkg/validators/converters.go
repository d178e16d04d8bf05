package validators

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ConvertToBoolean accepts bools, the integers 0 and 1, and the strings
// true/false, t/f, yes/no, y/n, on/off, 1/0 in any case.
func ConvertToBoolean(data interface{}) (bool, error) {
	switch v := data.(type) {
	case bool:
		return v, nil
	case int:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "on", "y", "yes":
			return true, nil
		case "0", "f", "false", "off", "n", "no":
			return false, nil
		}
	}
	return false, invalid("'%v' cannot be converted to boolean", data)
}

// ConvertToInt accepts integer kinds, integral floats, and decimal strings.
func ConvertToInt(data interface{}) (int, error) {
	if s, ok := data.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, invalid("'%s' is not an integer", s)
		}
		return n, nil
	}

	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt {
			break
		}
		return int(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f == math.Trunc(f) && f >= math.MinInt && f <= math.MaxInt {
			return int(f), nil
		}
	}
	return 0, invalid("'%v' is not an integer", data)
}

// ConvertToLowercase lowercases a string.
func ConvertToLowercase(data interface{}) (string, error) {
	s, ok := data.(string)
	if !ok {
		return "", invalid("'%v' cannot be converted to lowercase string", data)
	}
	return strings.ToLower(s), nil
}

// ConvertKVPListToMap turns ["k=v", "k=w", "x=y"] into
// {"k": ["v", "w"], "x": ["y"]}. Duplicate values of a key are dropped.
func ConvertKVPListToMap(items []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, invalid("'%s' is not of the form <key>=[value]", item)
		}
		values := out[key]
		duplicate := false
		for _, existing := range values {
			if existing == value {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out[key] = append(values, value)
		}
	}
	return out, nil
}

// ConvertNoneToEmptyList returns an empty list for nil and data otherwise.
func ConvertNoneToEmptyList(data interface{}) interface{} {
	if data == nil {
		return []interface{}{}
	}
	return data
}

// ConvertToList returns nil as an empty list, a string as a one element list,
// the elements of a slice or array, and any other value wrapped in a list.
func ConvertToList(data interface{}) []interface{} {
	if data == nil {
		return []interface{}{}
	}
	if s, ok := data.(string); ok {
		return []interface{}{s}
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = v.Index(i).Interface()
		}
		return out
	}
	return []interface{}{data}
}
