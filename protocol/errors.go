package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete means the buffered bytes end before a full message.
	// The caller keeps the buffer, appends more bytes and retries.
	ErrIncomplete = errors.New("protocol: incomplete message")

	// ErrEndOfStream is returned by Parser when no elements remain
	ErrEndOfStream = errors.New("protocol error; unexpected end of stream")

	// ErrConnectionReset means the peer closed the stream in the middle of a message
	ErrConnectionReset = errors.New("connection reset by peer")
)

// maxErrorData bounds how many offending bytes a ProtocolError keeps
const maxErrorData = 32

// ProtocolError reports malformed or unexpected input. It is fatal to the
// connection that produced it.
type ProtocolError struct {
	Message string
	Data    []byte
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("protocol error; %s", e.Message)
	}
	return fmt.Sprintf("protocol error; %s (%q)", e.Message, e.Data)
}

// IsProtocolError reports whether err is or wraps a *ProtocolError
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func protocolErrorf(data []byte, format string, args ...interface{}) error {
	if len(data) > maxErrorData {
		data = data[:maxErrorData]
	}
	return &ProtocolError{
		Message: fmt.Sprintf(format, args...),
		Data:    append([]byte(nil), data...),
	}
}
