package encode

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// ErrSyntax is returned when a payload is not a well-formed record literal.
var ErrSyntax = errors.New("invalid record syntax")

// Unmarshal parses a datagram payload produced by Marshal back into a Record.
// Integers decode as Int and numbers with a fraction or exponent as Float.
func Unmarshal(data []byte) (Record, error) {
	p := &parser{data: data}
	p.skipSpace()
	if p.peek() != '[' {
		return nil, p.errorf("expected '['")
	}

	v, err := p.value()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos != len(p.data) {
		return nil, p.errorf("trailing data")
	}
	return Record(v.(List)), nil
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) errorf(msg string) error {
	return errors.Wrapf(ErrSyntax, "%s at offset %d", msg, p.pos)
}

func (p *parser) peek() byte {
	if p.pos >= len(p.data) {
		return 0
	}
	return p.data[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	switch c := p.peek(); c {
	case '[':
		p.pos++
		elems, err := p.sequence(']', false)
		if err != nil {
			return nil, err
		}
		return List(elems), nil
	case '(':
		p.pos++
		elems, err := p.sequence(')', true)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil
	case '\'', '"':
		return p.quoted(c)
	case 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return p.number()
	}
}

// sequence parses elements up to and including the closing delimiter.
// Tuples may carry a trailing comma.
func (p *parser) sequence(end byte, trailingComma bool) ([]Value, error) {
	elems := []Value{}

	p.skipSpace()
	if p.peek() == end {
		p.pos++
		return elems, nil
	}

	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			p.skipSpace()
			if trailingComma && p.peek() == end {
				p.pos++
				return elems, nil
			}
		case end:
			p.pos++
			return elems, nil
		default:
			return nil, p.errorf("expected ',' or '" + string(end) + "'")
		}
	}
}

func (p *parser) quoted(quote byte) (Value, error) {
	p.pos++
	var out []byte
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case quote:
			return String(out), nil
		case '\\':
			if p.pos >= len(p.data) {
				return nil, p.errorf("unterminated escape")
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, e)
			}
		default:
			out = append(out, c)
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *parser) number() (Value, error) {
	start := p.pos
	isFloat := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == ',' || c == ']' || c == ')' || c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'i' {
			isFloat = true
		}
		p.pos++
	}

	tok := string(p.data[start:p.pos])
	if tok == "" {
		return nil, p.errorf("expected value")
	}

	if !isFloat {
		i, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "bad integer %q", tok)
		}
		return Int(i), nil
	}

	switch tok {
	case "nan":
		return Float(math.NaN()), nil
	case "inf":
		return Float(math.Inf(1)), nil
	case "-inf":
		return Float(math.Inf(-1)), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrSyntax, "bad number %q", tok)
	}
	return Float(f), nil
}
