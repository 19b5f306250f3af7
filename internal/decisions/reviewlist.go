package decisions

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedList is returned when a data_reviews cell is not a list of
// quoted strings.
var ErrMalformedList = errors.New("malformed review list")

// ParseReviewList decodes a bracketed list of quoted strings such as
//
//	['https://a', "https://b"]
//
// Single and double quotes are accepted, with backslash escapes for the
// quote characters, backslash, \n, \t and \r. A trailing comma is allowed.
// Anything else (bare words, numbers, calls) is rejected; the text is never
// evaluated.
func ParseReviewList(text string) ([]string, error) {
	p := &listParser{src: strings.TrimSpace(text)}
	items, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %s at offset %d in %q", ErrMalformedList, err.Error(), p.pos, text)
	}
	return items, nil
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) parse() ([]string, error) {
	if !p.consume('[') {
		return nil, errors.New("expected '['")
	}
	items := []string{}
	p.skipSpace()
	if p.consume(']') {
		return items, p.end()
	}
	for {
		p.skipSpace()
		item, err := p.quoted()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		if p.consume(']') {
			return items, p.end()
		}
		if !p.consume(',') {
			return nil, errors.New("expected ',' or ']'")
		}
		p.skipSpace()
		if p.consume(']') {
			return items, p.end()
		}
	}
}

func (p *listParser) quoted() (string, error) {
	if p.pos >= len(p.src) {
		return "", errors.New("unexpected end of input")
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", errors.New("expected quoted string")
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", errors.New("dangling escape")
			}
			next := p.src[p.pos+1]
			switch next {
			case '\\', '\'', '"':
				b.WriteByte(next)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			p.pos += 2
		case c == '\n':
			return "", errors.New("newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", errors.New("unterminated string")
}

func (p *listParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *listParser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return errors.New("trailing characters after ']'")
	}
	return nil
}
