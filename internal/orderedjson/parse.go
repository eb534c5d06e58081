package orderedjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// maxDepth matches the nesting limit of encoding/json's scanner.
const maxDepth = 10000

// ParseError reports malformed JSON input. No partial tree accompanies it.
type ParseError struct {
	Offset int64 // byte offset into the input
	Line   int   // 1-based
	Column int   // 1-based, in bytes
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("orderedjson: %s at line %d, column %d (offset %d)", e.Reason, e.Line, e.Column, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseString parses a JSON document held in a string.
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

// Parse parses exactly one JSON document. Object members keep the order in
// which their keys first appear in data. A repeated key keeps its first
// position and takes the last value.
//
// Input must be valid UTF-8 and string escapes must encode valid code points;
// a lone surrogate escape such as \ud800 is rejected rather than replaced.
func Parse(data []byte) (Value, error) {
	p := &parser{data: data, dec: json.NewDecoder(bytes.NewReader(data))}
	p.dec.UseNumber()

	if off := invalidUTF8(data); off >= 0 {
		return Value{}, p.errorAt(int64(off), "invalid UTF-8 in input", nil)
	}

	tok, start, err := p.next()
	if err != nil {
		return Value{}, err
	}
	v, err := p.value(tok, start, 0)
	if err != nil {
		return Value{}, err
	}

	end := p.dec.InputOffset()
	if _, err := p.dec.Token(); err != io.EOF {
		if err != nil {
			return Value{}, p.wrap(err, end)
		}
		return Value{}, p.errorAt(skipSpace(data, end), "unexpected data after top-level value", nil)
	}
	return v, nil
}

type parser struct {
	data []byte
	dec  *json.Decoder
}

// next reads one token and returns it together with the offset where the
// decoder stood before reading it.
func (p *parser) next() (json.Token, int64, error) {
	start := p.dec.InputOffset()
	tok, err := p.dec.Token()
	if err != nil {
		return nil, start, p.wrap(err, start)
	}
	return tok, start, nil
}

func (p *parser) value(tok json.Token, start int64, depth int) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(string(t)), nil
	case string:
		if err := p.checkEscapes(start); err != nil {
			return Value{}, err
		}
		return String(t), nil
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, p.errorAt(skipSpace(p.data, start), "exceeded max nesting depth", nil)
		}
		switch t {
		case '{':
			return p.object(depth + 1)
		case '[':
			return p.array(depth + 1)
		}
		return Value{}, p.errorAt(skipSpace(p.data, start), fmt.Sprintf("unexpected %q", rune(t)), nil)
	default:
		return Value{}, p.errorAt(skipSpace(p.data, start), fmt.Sprintf("unexpected token %T", tok), nil)
	}
}

func (p *parser) object(depth int) (Value, error) {
	obj := NewObject()
	for {
		tok, start, err := p.next()
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return ObjectValue(obj), nil
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, p.errorAt(skipSpace(p.data, start), "expected object key", nil)
		}
		if err := p.checkEscapes(start); err != nil {
			return Value{}, err
		}

		tok, start, err = p.next()
		if err != nil {
			return Value{}, err
		}
		v, err := p.value(tok, start, depth)
		if err != nil {
			return Value{}, err
		}
		obj.Set(key, v)
	}
}

func (p *parser) array(depth int) (Value, error) {
	elems := []Value{}
	for {
		tok, start, err := p.next()
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return Array(elems...), nil
		}
		v, err := p.value(tok, start, depth)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
}

// checkEscapes scans the string token the decoder just read, starting at
// start, for \u escapes that do not form a valid code point. encoding/json
// would otherwise decode them to U+FFFD and the stored forms would no longer
// match the raw text.
func (p *parser) checkEscapes(start int64) error {
	seg := p.data[start:p.dec.InputOffset()]
	for i := 0; i < len(seg); i++ {
		if seg[i] != '\\' || i+1 >= len(seg) {
			continue
		}
		if seg[i+1] != 'u' {
			i++
			continue
		}
		esc := i
		r := hex4(seg[i+2:])
		i += 5
		switch {
		case r >= 0xD800 && r < 0xDC00:
			if i+6 < len(seg) && seg[i+1] == '\\' && seg[i+2] == 'u' {
				if lo := hex4(seg[i+3:]); lo >= 0xDC00 && lo < 0xE000 {
					i += 6
					continue
				}
			}
			return p.errorAt(start+int64(esc), "unpaired surrogate escape", nil)
		case r >= 0xDC00 && r < 0xE000:
			return p.errorAt(start+int64(esc), "unpaired surrogate escape", nil)
		}
	}
	return nil
}

// hex4 decodes the four hex digits at the start of b, or returns -1.
func hex4(b []byte) rune {
	if len(b) < 4 {
		return -1
	}
	n, err := strconv.ParseUint(string(b[:4]), 16, 32)
	if err != nil {
		return -1
	}
	return rune(n)
}

// invalidUTF8 returns the offset of the first byte that is not part of a
// valid UTF-8 sequence, or -1.
func invalidUTF8(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return off
		}
		off += size
	}
	return -1
}

func (p *parser) wrap(err error, offset int64) error {
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		// Offsets reported from inside a value may only count that value's
		// bytes; never point before the token that failed.
		return p.errorAt(max(syntaxErr.Offset, skipSpace(p.data, offset)), syntaxErr.Error(), err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return p.errorAt(int64(len(p.data)), "unexpected end of input", err)
	default:
		return p.errorAt(offset, err.Error(), err)
	}
}

func (p *parser) errorAt(offset int64, reason string, err error) *ParseError {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(p.data)) {
		offset = int64(len(p.data))
	}
	line, col := 1, 1
	for _, c := range p.data[:offset] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return &ParseError{Offset: offset, Line: line, Column: col, Reason: reason, Err: err}
}

func skipSpace(data []byte, off int64) int64 {
	for off < int64(len(data)) {
		switch data[off] {
		case ' ', '\t', '\n', '\r':
			off++
		default:
			return off
		}
	}
	return off
}
