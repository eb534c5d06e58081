// Package orderedjson implements a JSON value tree whose objects remember the
// order in which their members were inserted.
//
// A document parsed with Parse keeps every object's members in the order their
// keys first appear in the source text, at every nesting depth. Marshal writes
// them back in that order. ToStandard and MarshalNormalized go through the
// ordinary map-based representation and make no such promise.
package orderedjson

import (
	"fmt"
	"strconv"
)

// Kind identifies the JSON type held by a Value.
type Kind uint8

const (
	// NullKind is the JSON null literal
	NullKind Kind = iota
	// BoolKind is true or false
	BoolKind
	// NumberKind is a JSON number, kept as its literal text
	NumberKind
	// StringKind is a JSON string
	StringKind
	// ArrayKind is an ordered sequence of values
	ArrayKind
	// ObjectKind is an ordered set of members
	ObjectKind
)

var kindNames = [...]string{
	NullKind:   "null",
	BoolKind:   "bool",
	NumberKind: "number",
	StringKind: "string",
	ArrayKind:  "array",
	ObjectKind: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single JSON value. The zero Value is null.
//
// Numbers are stored as the literal text they were parsed from so that
// integers of any size and floating values round-trip exactly.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or number literal
	arr  []Value
	obj  *Object
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// String returns a JSON string.
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Int returns a JSON number holding i.
func Int(i int64) Value {
	return Value{kind: NumberKind, s: strconv.FormatInt(i, 10)}
}

// Float returns a JSON number holding f in its shortest round-tripping form.
// NaN and infinities have no JSON representation; Marshal rejects them.
func Float(f float64) Value {
	return Value{kind: NumberKind, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number returns a JSON number from its literal text. The literal is checked
// when the value is marshaled, not here.
func Number(literal string) Value {
	return Value{kind: NumberKind, s: literal}
}

// Array returns a JSON array of the given elements.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: ArrayKind, arr: elems}
}

// ObjectValue wraps obj as a Value. A nil obj yields an empty object.
func ObjectValue(obj *Object) Value {
	if obj == nil {
		obj = NewObject()
	}
	return Value{kind: ObjectKind, obj: obj}
}

// Kind reports the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == NullKind }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == BoolKind
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return v.s, true
}

// NumberLiteral returns the literal text of a number.
func (v Value) NumberLiteral() (string, bool) {
	if v.kind != NumberKind {
		return "", false
	}
	return v.s, true
}

// AsInt64 parses the number held by v as an integer.
func (v Value) AsInt64() (int64, error) {
	if v.kind != NumberKind {
		return 0, fmt.Errorf("orderedjson: %s is not a number", v.kind)
	}
	return strconv.ParseInt(v.s, 10, 64)
}

// AsFloat64 parses the number held by v as a float.
func (v Value) AsFloat64() (float64, error) {
	if v.kind != NumberKind {
		return 0, fmt.Errorf("orderedjson: %s is not a number", v.kind)
	}
	return strconv.ParseFloat(v.s, 64)
}

// Elements returns the elements of an array. The slice is shared with v.
func (v Value) Elements() ([]Value, bool) {
	if v.kind != ArrayKind {
		return nil, false
	}
	return v.arr, true
}

// Object returns the object held by v.
func (v Value) Object() (*Object, bool) {
	if v.kind != ObjectKind {
		return nil, false
	}
	return v.obj, true
}

// String returns the compact JSON encoding of v. Values that cannot be
// encoded (an invalid number literal) render as an error marker.
func (v Value) String() string {
	b, err := Marshal(v)
	if err != nil {
		return "%!(orderedjson: " + err.Error() + ")"
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler, keeping member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
