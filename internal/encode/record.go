package encode

import (
	"math"
	"strconv"
	"strings"
)

// Value is one element of a Record.
type Value interface {
	appendTo(b []byte) []byte
}

type (
	// Int is an integral scalar such as a frame dimension or pixel coordinate.
	Int int64
	// Float is a floating point scalar.
	Float float64
	// String is a text scalar such as a handedness label.
	String string
	// Tuple is a fixed-size group rendered in parentheses, e.g. a bounding box.
	Tuple []Value
	// List is a variable-size group rendered in brackets, e.g. a landmark list.
	List []Value
)

// Record is one frame's encoded output. Field order is fixed by the
// assembler's options, so consumers decode it positionally.
type Record []Value

// Marshal renders r as a bracketed list literal, the datagram payload.
func Marshal(r Record) []byte {
	return List(r).appendTo(make([]byte, 0, 256))
}

// String returns the wire form of r.
func (r Record) String() string {
	return string(Marshal(r))
}

func (v Int) appendTo(b []byte) []byte {
	return strconv.AppendInt(b, int64(v), 10)
}

func (v Float) appendTo(b []byte) []byte {
	return appendFloat(b, float64(v))
}

func (v String) appendTo(b []byte) []byte {
	return appendQuoted(b, string(v))
}

func (v Tuple) appendTo(b []byte) []byte {
	b = append(b, '(')
	b = appendElems(b, v)
	if len(v) == 1 {
		b = append(b, ',')
	}
	return append(b, ')')
}

func (v List) appendTo(b []byte) []byte {
	b = append(b, '[')
	b = appendElems(b, v)
	return append(b, ']')
}

func appendElems(b []byte, vs []Value) []byte {
	for i, v := range vs {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = v.appendTo(b)
	}
	return b
}

// appendFloat writes the shortest representation that parses back to f,
// positional between 1e-4 and 1e16 and always carrying a fraction or exponent
// so it never reads as an Int.
func appendFloat(b []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(b, "nan"...)
	case math.IsInf(f, 1):
		return append(b, "inf"...)
	case math.IsInf(f, -1):
		return append(b, "-inf"...)
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.AppendFloat(b, f, 'e', -1, 64)
	}

	start := len(b)
	b = strconv.AppendFloat(b, f, 'f', -1, 64)
	for _, c := range b[start:] {
		if c == '.' {
			return b
		}
	}
	return append(b, '.', '0')
}

// appendQuoted writes s in single quotes, switching to double quotes when s
// contains a single quote but no double quote.
func appendQuoted(b []byte, s string) []byte {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	b = append(b, quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote || c == '\\':
			b = append(b, '\\', c)
		case c == '\n':
			b = append(b, '\\', 'n')
		case c == '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, c)
		}
	}
	return append(b, quote)
}
