package orderedjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Marshal returns the compact JSON encoding of v with object members in
// iteration order. HTML characters are written as-is.
func Marshal(v Value) ([]byte, error) {
	e := newEncodeState()
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// MarshalIndent is like Marshal but indents the output.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type encodeState struct {
	buf bytes.Buffer
	enc *json.Encoder
}

func newEncodeState() *encodeState {
	e := &encodeState{}
	e.enc = json.NewEncoder(&e.buf)
	e.enc.SetEscapeHTML(false)
	return e
}

func (e *encodeState) value(v Value) error {
	switch v.kind {
	case NullKind:
		e.buf.WriteString("null")
	case BoolKind:
		e.buf.WriteString(strconv.FormatBool(v.b))
	case NumberKind:
		if !validNumber(v.s) {
			return fmt.Errorf("orderedjson: invalid number literal %q", v.s)
		}
		e.buf.WriteString(v.s)
	case StringKind:
		return e.str(v.s)
	case ArrayKind:
		e.buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.value(elem); err != nil {
				return err
			}
		}
		e.buf.WriteByte(']')
	case ObjectKind:
		e.buf.WriteByte('{')
		first := true
		for k, member := range v.obj.All() {
			if !first {
				e.buf.WriteByte(',')
			}
			first = false
			if err := e.str(k); err != nil {
				return err
			}
			e.buf.WriteByte(':')
			if err := e.value(member); err != nil {
				return err
			}
		}
		e.buf.WriteByte('}')
	default:
		return fmt.Errorf("orderedjson: unknown kind %s", v.kind)
	}
	return nil
}

// str quotes s through encoding/json so escaping matches the standard path.
func (e *encodeState) str(s string) error {
	if err := e.enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	e.buf.Truncate(e.buf.Len() - 1)
	return nil
}

func validNumber(lit string) bool {
	if lit == "" {
		return false
	}
	first, last := lit[0], lit[len(lit)-1]
	if first != '-' && (first < '0' || first > '9') {
		return false
	}
	if last < '0' || last > '9' {
		return false
	}
	return json.Valid([]byte(lit))
}
