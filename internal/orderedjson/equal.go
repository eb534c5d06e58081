package orderedjson

import (
	"strconv"
	"strings"
)

// Equal reports whether a and b hold the same JSON structure with object
// members in the same order. Numbers compare by literal text.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case NullKind:
		return true
	case BoolKind:
		return a.b == b.b
	case NumberKind, StringKind:
		return a.s == b.s
	case ArrayKind:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case ObjectKind:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for i, k := range a.obj.keys {
			if b.obj.keys[i] != k || !Equal(a.obj.values[i], b.obj.values[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Paths lists the JSON Pointer of every object member in v, depth first in
// iteration order. Array elements contribute only the members beneath them.
func Paths(v Value) []string {
	var out []string
	collectPaths(v, "", &out)
	return out
}

func collectPaths(v Value, prefix string, out *[]string) {
	switch v.kind {
	case ObjectKind:
		for k, member := range v.obj.All() {
			p := prefix + "/" + escapePointer(k)
			*out = append(*out, p)
			collectPaths(member, p, out)
		}
	case ArrayKind:
		for i, elem := range v.arr {
			collectPaths(elem, prefix+"/"+strconv.Itoa(i), out)
		}
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(token string) string {
	return pointerEscaper.Replace(token)
}
