package protocol

import (
	"errors"
	"fmt"
	"io"
)

// initialBufferSize is the starting capacity of the read buffer
const initialBufferSize = 4 * 1024

// Connection frames messages over a byte stream. Reads go through a
// growable buffer so a message may arrive split across any number of
// reads; writes are buffered and flushed once per message.
//
// A Connection is owned by a single goroutine.
type Connection struct {
	rw     io.ReadWriter
	writer *Writer

	buf   []byte // buffered, unconsumed bytes live in buf[start:]
	start int
}

// NewConnection wraps rw
func NewConnection(rw io.ReadWriter) *Connection {
	return &Connection{
		rw:     rw,
		writer: NewWriter(rw),
		buf:    make([]byte, 0, initialBufferSize),
	}
}

// ReadMessage returns the next message from the stream.
//
// It returns io.EOF when the peer closed the stream between messages and
// ErrConnectionReset when it closed in the middle of one. Protocol errors
// are returned as they are found and leave the connection unusable.
func (c *Connection) ReadMessage() (Message, error) {
	for {
		m, ok, err := c.parseMessage()
		if err != nil {
			return Message{}, err
		}
		if ok {
			return m, nil
		}

		n, err := c.fill()
		if n > 0 {
			continue
		}
		if err == io.EOF {
			if c.Buffered() == 0 {
				return Message{}, io.EOF
			}
			return Message{}, ErrConnectionReset
		}
		if err != nil {
			return Message{}, fmt.Errorf("failed to read from transport: %w", err)
		}
	}
}

// parseMessage decodes one message from the buffered bytes, if present
func (c *Connection) parseMessage() (Message, bool, error) {
	m, n, err := Decode(c.buf[c.start:])
	if err != nil {
		if errors.Is(err, ErrIncomplete) {
			return Message{}, false, nil
		}
		return Message{}, false, err
	}

	c.start += n
	if c.start == len(c.buf) {
		c.buf = c.buf[:0]
		c.start = 0
	}
	return m, true, nil
}

// fill reads once from the transport into the free tail of the buffer,
// compacting or growing it first when the tail is full
func (c *Connection) fill() (int, error) {
	if len(c.buf) == cap(c.buf) {
		if c.start > 0 {
			n := copy(c.buf, c.buf[c.start:])
			c.buf = c.buf[:n]
			c.start = 0
		}
		if len(c.buf) == cap(c.buf) {
			grown := make([]byte, len(c.buf), 2*cap(c.buf)+initialBufferSize)
			copy(grown, c.buf)
			c.buf = grown
		}
	}

	n, err := c.rw.Read(c.buf[len(c.buf):cap(c.buf)])
	c.buf = c.buf[:len(c.buf)+n]
	return n, err
}

// Buffered returns the number of read but unconsumed bytes
func (c *Connection) Buffered() int {
	return len(c.buf) - c.start
}

// WriteMessage encodes m and flushes it to the transport
func (c *Connection) WriteMessage(m Message) error {
	if err := c.writer.WriteMessage(m); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Close closes the transport if it supports closing
func (c *Connection) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
