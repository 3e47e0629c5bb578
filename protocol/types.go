package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MessageType identifies the variant held by a Message
type MessageType byte

const (
	// Wire tag bytes
	TypeSimple MessageType = '+'
	TypeBulk   MessageType = '$'
	TypeArray  MessageType = '*'

	// TypeNull is encoded as a bulk with the -1 sentinel; 'N' never appears on the wire
	TypeNull MessageType = 'N'
)

// String returns the variant name
func (t MessageType) String() string {
	switch t {
	case TypeSimple:
		return "simple"
	case TypeBulk:
		return "bulk"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Message is one frame of the wire protocol.
//
// Only the field matching Type is meaningful: Str for simple messages,
// Data for bulk messages and Array for arrays. Array elements are owned
// by the message and may themselves be arrays.
type Message struct {
	Type  MessageType
	Str   string
	Data  []byte
	Array []Message
}

// Simple returns a simple text message
func Simple(s string) Message {
	return Message{Type: TypeSimple, Str: s}
}

// Bulk returns a bulk message carrying data. A nil slice is stored as an
// empty payload so that an empty bulk stays distinct from Null.
func Bulk(data []byte) Message {
	if data == nil {
		data = []byte{}
	}
	return Message{Type: TypeBulk, Data: data}
}

// BulkString returns a bulk message carrying the bytes of s
func BulkString(s string) Message {
	return Bulk([]byte(s))
}

// Null returns the null message
func Null() Message {
	return Message{Type: TypeNull}
}

// Array returns an array message owning items
func Array(items ...Message) Message {
	if items == nil {
		items = []Message{}
	}
	return Message{Type: TypeArray, Array: items}
}

// IsNull reports whether m is the null message
func (m Message) IsNull() bool {
	return m.Type == TypeNull
}

// Push appends item to an array message. It panics if m is not an array.
func (m *Message) Push(item Message) {
	if m.Type != TypeArray {
		panic("protocol: push on " + m.Type.String() + " message")
	}
	m.Array = append(m.Array, item)
}

// PushBulk appends a bulk element to an array message
func (m *Message) PushBulk(data []byte) {
	m.Push(Bulk(data))
}

// Equal reports whether m and other hold the same variant and payload
func (m Message) Equal(other Message) bool {
	if m.Type != other.Type {
		return false
	}
	switch m.Type {
	case TypeSimple:
		return m.Str == other.Str
	case TypeBulk:
		return string(m.Data) == string(other.Data)
	case TypeArray:
		if len(m.Array) != len(other.Array) {
			return false
		}
		for i := range m.Array {
			if !m.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String returns a human readable representation of the message
func (m Message) String() string {
	switch m.Type {
	case TypeSimple:
		return m.Str
	case TypeBulk:
		if utf8.Valid(m.Data) {
			return string(m.Data)
		}
		return strconv.Quote(string(m.Data))
	case TypeNull:
		return "(nil)"
	case TypeArray:
		parts := make([]string, len(m.Array))
		for i, item := range m.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("unknown type %c", m.Type)
	}
}
