package protocol

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

const (
	// CRLF is the line terminator used throughout the protocol
	CRLF = "\r\n"

	// maxBulkLen is the largest bulk payload accepted (512MB)
	maxBulkLen = 512 * 1024 * 1024

	// maxArrayLen is the largest element count accepted for an array
	maxArrayLen = 1024 * 1024

	// maxDepth is the deepest array nesting accepted
	maxDepth = 512

	maxInt = int(^uint(0) >> 1)
)

var (
	crlfBytes    = []byte(CRLF)
	nullSentinel = []byte("-1")
)

// Cursor tracks a read position over an immutable byte buffer
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of buf
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Position returns the offset of the next unread byte
func (c *Cursor) Position() int {
	return c.pos
}

// SetPosition moves the cursor to pos
func (c *Cursor) SetPosition(pos int) {
	c.pos = pos
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) peekU8() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, ErrIncomplete
	}
	return c.buf[c.pos], nil
}

func (c *Cursor) getU8() (byte, error) {
	b, err := c.peekU8()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

// getLine returns the bytes up to the next CRLF and moves past it
func (c *Cursor) getLine() ([]byte, error) {
	i := bytes.Index(c.buf[c.pos:], crlfBytes)
	if i < 0 {
		return nil, ErrIncomplete
	}
	line := c.buf[c.pos : c.pos+i]
	c.pos += i + len(crlfBytes)
	return line, nil
}

// getLength reads a decimal length line and enforces limit
func (c *Cursor) getLength(limit int) (int, error) {
	line, err := c.getLine()
	if err != nil {
		return 0, err
	}
	n, err := parseLength(line)
	if err != nil {
		if err == strconv.ErrRange {
			return 0, protocolErrorf(line, "length overflows int")
		}
		return 0, protocolErrorf(line, "invalid length")
	}
	if n > limit {
		return 0, protocolErrorf(line, "length %d exceeds limit %d", n, limit)
	}
	return n, nil
}

// skipPayload moves past n payload bytes and their CRLF terminator
func (c *Cursor) skipPayload(n int) error {
	if c.Remaining() < n+len(crlfBytes) {
		return ErrIncomplete
	}
	end := c.pos + n
	if !bytes.Equal(c.buf[end:end+len(crlfBytes)], crlfBytes) {
		return protocolErrorf(c.buf[end:end+len(crlfBytes)], "bulk payload not terminated by CRLF")
	}
	c.pos = end + len(crlfBytes)
	return nil
}

// parseLength parses an unsigned decimal without allocation
func parseLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var n int
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return 0, strconv.ErrSyntax
		}
		d := int(ch - '0')
		if n > (maxInt-d)/10 {
			return 0, strconv.ErrRange
		}
		n = n*10 + d
	}
	return n, nil
}

// Check confirms that a complete message starts at the cursor without
// allocating. On success the cursor is left just past the message. It
// returns ErrIncomplete when more bytes are needed and a *ProtocolError
// when the bytes can never form a valid message.
func Check(c *Cursor) error {
	return check(c, 0)
}

func check(c *Cursor, depth int) error {
	tag, err := c.getU8()
	if err != nil {
		return err
	}

	switch MessageType(tag) {
	case TypeSimple:
		_, err := c.getLine()
		return err

	case TypeArray:
		if depth >= maxDepth {
			return protocolErrorf(nil, "arrays nested deeper than %d", maxDepth)
		}
		n, err := c.getLength(maxArrayLen)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := check(c, depth+1); err != nil {
				return err
			}
		}
		return nil

	case TypeBulk:
		next, err := c.peekU8()
		if err != nil {
			return err
		}
		if next == '-' {
			line, err := c.getLine()
			if err != nil {
				return err
			}
			if !bytes.Equal(line, nullSentinel) {
				return protocolErrorf(line, "invalid null sentinel")
			}
			return nil
		}
		n, err := c.getLength(maxBulkLen)
		if err != nil {
			return err
		}
		return c.skipPayload(n)

	default:
		return protocolErrorf([]byte{tag}, "invalid message type byte `%d`", tag)
	}
}

// Parse builds a Message from the bytes at the cursor. It is meant to run
// after a successful Check over the same bytes; bulk payloads are copied
// so the result does not alias the buffer.
func Parse(c *Cursor) (Message, error) {
	return parse(c, 0)
}

func parse(c *Cursor, depth int) (Message, error) {
	tag, err := c.getU8()
	if err != nil {
		return Message{}, err
	}

	switch MessageType(tag) {
	case TypeSimple:
		line, err := c.getLine()
		if err != nil {
			return Message{}, err
		}
		if !utf8.Valid(line) {
			return Message{}, protocolErrorf(line, "simple message is not valid UTF-8")
		}
		// Simple text is a single line on both the read and the write side
		if bytes.ContainsAny(line, CRLF) {
			return Message{}, protocolErrorf(line, "simple message contains a line terminator")
		}
		return Simple(string(line)), nil

	case TypeArray:
		if depth >= maxDepth {
			return Message{}, protocolErrorf(nil, "arrays nested deeper than %d", maxDepth)
		}
		n, err := c.getLength(maxArrayLen)
		if err != nil {
			return Message{}, err
		}
		items := make([]Message, 0, n)
		for i := 0; i < n; i++ {
			item, err := parse(c, depth+1)
			if err != nil {
				return Message{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil

	case TypeBulk:
		next, err := c.peekU8()
		if err != nil {
			return Message{}, err
		}
		if next == '-' {
			line, err := c.getLine()
			if err != nil {
				return Message{}, err
			}
			if !bytes.Equal(line, nullSentinel) {
				return Message{}, protocolErrorf(line, "invalid null sentinel")
			}
			return Null(), nil
		}
		n, err := c.getLength(maxBulkLen)
		if err != nil {
			return Message{}, err
		}
		start := c.pos
		if err := c.skipPayload(n); err != nil {
			return Message{}, err
		}
		data := make([]byte, n)
		copy(data, c.buf[start:start+n])
		return Bulk(data), nil

	default:
		return Message{}, protocolErrorf([]byte{tag}, "invalid message type byte `%d`", tag)
	}
}

// Decode validates and parses one message from the front of buf and
// returns it with the number of bytes it occupied.
func Decode(buf []byte) (Message, int, error) {
	c := NewCursor(buf)
	if err := Check(c); err != nil {
		return Message{}, 0, err
	}
	n := c.Position()

	c.SetPosition(0)
	m, err := Parse(c)
	if err != nil {
		return Message{}, 0, err
	}
	return m, n, nil
}
