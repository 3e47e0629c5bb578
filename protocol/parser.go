package protocol

import (
	"strconv"
	"unicode/utf8"
)

// Parser reads the elements of an array message in order. Request types
// use it to pull their fields and then call Finish to reject extra
// elements.
type Parser struct {
	parts []Message
	pos   int
}

// NewParser returns a parser over the elements of m, which must be an array
func NewParser(m Message) (*Parser, error) {
	if m.Type != TypeArray {
		return nil, protocolErrorf(nil, "expected array message, got %s", m.Type)
	}
	return &Parser{parts: m.Array}, nil
}

func (p *Parser) next() (Message, error) {
	if p.pos >= len(p.parts) {
		return Message{}, ErrEndOfStream
	}
	m := p.parts[p.pos]
	p.pos++
	return m, nil
}

// NextString returns the next element as text. Simple and bulk elements
// are accepted; bulk payloads must be valid UTF-8.
func (p *Parser) NextString() (string, error) {
	m, err := p.next()
	if err != nil {
		return "", err
	}

	switch m.Type {
	case TypeSimple:
		return m.Str, nil
	case TypeBulk:
		if !utf8.Valid(m.Data) {
			return "", protocolErrorf(m.Data, "invalid string")
		}
		return string(m.Data), nil
	default:
		return "", protocolErrorf(nil, "expected simple message or bulk message, got %s", m.Type)
	}
}

// NextBytes returns the next element as raw bytes
func (p *Parser) NextBytes() ([]byte, error) {
	m, err := p.next()
	if err != nil {
		return nil, err
	}

	switch m.Type {
	case TypeSimple:
		return []byte(m.Str), nil
	case TypeBulk:
		return m.Data, nil
	default:
		return nil, protocolErrorf(nil, "expected simple message or bulk message, got %s", m.Type)
	}
}

// NextInt returns the next element parsed as a base 10 integer
func (p *Parser) NextInt() (int64, error) {
	s, err := p.NextString()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, protocolErrorf([]byte(s), "invalid number")
	}
	return n, nil
}

// Remaining returns the number of elements not yet consumed
func (p *Parser) Remaining() int {
	return len(p.parts) - p.pos
}

// Finish returns an error if any element is left unconsumed
func (p *Parser) Finish() error {
	if p.pos < len(p.parts) {
		return protocolErrorf(nil, "expected end of message, %d element(s) left", len(p.parts)-p.pos)
	}
	return nil
}
