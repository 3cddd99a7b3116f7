// Package field models the heterogeneous "line is an int or a string" values used by
// board-file lines, game CSV rows and wire-protocol payloads: a tagged sum, never a
// language-level "any".
package field

import "fmt"

// Value is either an Int or a Str. The zero Value is the Int 0.
type Value struct {
	str   string
	n     int
	isStr bool
}

// Int wraps a signed integer value.
func Int(n int) Value {
	return Value{n: n}
}

// Str wraps a string value.
func Str(s string) Value {
	return Value{str: s, isStr: true}
}

// IsStr reports whether the value holds a string.
func (v Value) IsStr() bool {
	return v.isStr
}

// AsInt returns the wrapped integer, or 0 if the value holds a string.
func (v Value) AsInt() int {
	return v.n
}

// AsStr returns the wrapped string, or "" if the value holds an integer.
func (v Value) AsStr() string {
	return v.str
}

func (v Value) String() string {
	if v.isStr {
		return v.str
	}
	return fmt.Sprintf("%d", v.n)
}
