package orderedjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// ToStandard converts v into the representation produced by encoding/json
// with UseNumber: nil, bool, json.Number, string, []any and map[string]any.
// Member order is lost.
func ToStandard(v Value) any {
	switch v.kind {
	case BoolKind:
		return v.b
	case NumberKind:
		return json.Number(v.s)
	case StringKind:
		return v.s
	case ArrayKind:
		out := make([]any, len(v.arr))
		for i, elem := range v.arr {
			out[i] = ToStandard(elem)
		}
		return out
	case ObjectKind:
		out := make(map[string]any, v.obj.Len())
		for k, member := range v.obj.All() {
			out[k] = ToStandard(member)
		}
		return out
	default:
		return nil
	}
}

// FromStandard converts a standard JSON tree into a Value. Maps carry no
// order, so their members are inserted in sorted key order.
func FromStandard(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Object:
		return ObjectValue(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(string(t)), nil
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			v, err := FromStandard(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = v
		}
		return Array(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromStandard(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%q: %w", k, err)
			}
			obj.Set(k, v)
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("orderedjson: unsupported type %T", x)
	}
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("orderedjson: unsupported float value %v", f)
	}
	return Float(f), nil
}

// MarshalNormalized encodes v through the standard map-based path. Object
// members come out in whatever order encoding/json chooses (currently sorted
// by key), not in v's order.
func MarshalNormalized(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ToStandard(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
