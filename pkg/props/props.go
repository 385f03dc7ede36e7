// Package props normalizes node property values to the JSON data model:
// nil, bool, string, float64, []interface{} and map[string]interface{}.
// Normalized values are freshly allocated, so the caller's slices and maps
// are never shared, and they compare equal after a JSON or CBOR round trip.
package props

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ErrUnsupported is returned for values with no JSON representation
var ErrUnsupported = errors.New("unsupported property value")

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Normalize returns a deep copy of v in JSON-native types. Integers and
// float32 become float64, byte slices become base64 strings the way
// encoding/json writes them, and other slices, arrays and string-keyed maps
// are copied element by element. Structs and json.Marshaler values go
// through encoding/json. NaN, infinities, channels, funcs and maps with
// non-string keys are rejected.
func Normalize(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case float64:
		return checkFloat(val)
	case map[string]interface{}:
		return Map(val)
	case []interface{}:
		return normalizeSlice(reflect.ValueOf(val))
	}

	rv := reflect.ValueOf(v)
	if rv.Type().Implements(marshalerType) {
		return viaJSON(v)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		// match the shortest 32-bit form encoding/json writes
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return checkFloat(f)
	case reflect.Float64:
		return checkFloat(rv.Float())
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
		}
		return normalizeSlice(rv)
	case reflect.Array:
		return normalizeSlice(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrUnsupported, rv.Type().Key())
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item, err := Normalize(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = item
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Struct:
		return viaJSON(v)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// Map normalizes every value of a property bag into a new map
func Map(in map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		item, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = item
	}
	return out, nil
}

func normalizeSlice(rv reflect.Value) (interface{}, error) {
	out := make([]interface{}, rv.Len())
	for i := range out {
		item, err := Normalize(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = item
	}
	return out, nil
}

func checkFloat(f float64) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number", ErrUnsupported)
	}
	return f, nil
}

func viaJSON(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return out, nil
}
