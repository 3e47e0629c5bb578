package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Writer encodes messages onto a buffered stream
type Writer struct {
	bw *bufio.Writer
}

// NewWriter creates a new message writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw: bufio.NewWriter(w),
	}
}

// WriteMessage encodes m into the buffer. Arrays are encoded recursively,
// so nested arrays round-trip through Check and Parse. The whole message
// is validated first; nothing is buffered when it cannot be encoded.
func (w *Writer) WriteMessage(m Message) error {
	if err := Validate(m); err != nil {
		return err
	}
	return w.writeMessage(m)
}

func (w *Writer) writeMessage(m Message) error {
	switch m.Type {
	case TypeSimple:
		return w.writeSimple(m.Str)
	case TypeBulk:
		return w.WriteBulk(m.Data)
	case TypeNull:
		return w.WriteNull()
	default:
		if err := w.writeHeader(TypeArray, len(m.Array)); err != nil {
			return err
		}
		for _, item := range m.Array {
			if err := w.writeMessage(item); err != nil {
				return err
			}
		}
		return nil
	}
}

// Validate reports whether m can be encoded: every variant must be known
// and simple text must not contain CR or LF.
func Validate(m Message) error {
	switch m.Type {
	case TypeSimple:
		if strings.ContainsAny(m.Str, CRLF) {
			return protocolErrorf([]byte(m.Str), "simple message contains a line terminator")
		}
	case TypeBulk, TypeNull:
	case TypeArray:
		for _, item := range m.Array {
			if err := Validate(item); err != nil {
				return err
			}
		}
	default:
		return protocolErrorf(nil, "unsupported message type %s", m.Type)
	}
	return nil
}

// WriteSimple writes a simple message. Text containing CR or LF cannot be
// framed as a single line and is rejected.
func (w *Writer) WriteSimple(s string) error {
	if err := Validate(Simple(s)); err != nil {
		return err
	}
	return w.writeSimple(s)
}

func (w *Writer) writeSimple(s string) error {
	if err := w.bw.WriteByte(byte(TypeSimple)); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(s); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteBulk writes a bulk message
func (w *Writer) WriteBulk(data []byte) error {
	if err := w.writeHeader(TypeBulk, len(data)); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteNull writes the null message
func (w *Writer) WriteNull() error {
	if err := w.bw.WriteByte(byte(TypeBulk)); err != nil {
		return err
	}
	if _, err := w.bw.Write(nullSentinel); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteArray writes an array header followed by each element
func (w *Writer) WriteArray(items []Message) error {
	return w.WriteMessage(Message{Type: TypeArray, Array: items})
}

// Flush flushes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Reset discards buffered data and writes to a new underlying writer
func (w *Writer) Reset(writer io.Writer) {
	w.bw.Reset(writer)
}

func (w *Writer) writeHeader(t MessageType, n int) error {
	var scratch [24]byte
	line := append(scratch[:0], byte(t))
	line = strconv.AppendInt(line, int64(n), 10)
	line = append(line, CRLF...)
	_, err := w.bw.Write(line)
	return err
}

// writeCRLF writes the CRLF terminator
func (w *Writer) writeCRLF() error {
	_, err := w.bw.WriteString(CRLF)
	return err
}

// AppendMessage appends the encoding of m to dst. dst is returned
// unchanged when m cannot be encoded.
func AppendMessage(dst []byte, m Message) ([]byte, error) {
	if err := Validate(m); err != nil {
		return dst, err
	}
	return appendMessage(dst, m), nil
}

func appendMessage(dst []byte, m Message) []byte {
	switch m.Type {
	case TypeSimple:
		dst = append(dst, byte(TypeSimple))
		dst = append(dst, m.Str...)
		return append(dst, CRLF...)
	case TypeBulk:
		dst = append(dst, byte(TypeBulk))
		dst = strconv.AppendInt(dst, int64(len(m.Data)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, m.Data...)
		return append(dst, CRLF...)
	case TypeNull:
		dst = append(dst, byte(TypeBulk))
		dst = append(dst, nullSentinel...)
		return append(dst, CRLF...)
	default:
		dst = append(dst, byte(TypeArray))
		dst = strconv.AppendInt(dst, int64(len(m.Array)), 10)
		dst = append(dst, CRLF...)
		for _, item := range m.Array {
			dst = appendMessage(dst, item)
		}
		return dst
	}
}

// Encode returns the wire encoding of m
func Encode(m Message) ([]byte, error) {
	return AppendMessage(nil, m)
}
