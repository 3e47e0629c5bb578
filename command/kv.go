package command

import (
	"github.com/miniminio/miniminio/protocol"
)

// Ping checks liveness. With a message the reply echoes it as bulk,
// without one the reply is PONG.
type Ping struct {
	Msg []byte // nil when no message was given
}

func parsePing(p *protocol.Parser) (*Ping, error) {
	if p.Remaining() == 0 {
		return &Ping{}, nil
	}
	msg, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	return &Ping{Msg: msg}, nil
}

// Name implements Command
func (c *Ping) Name() string { return "PING" }

// ToMessage implements Command
func (c *Ping) ToMessage() protocol.Message {
	m := bulkArray(c.Name())
	if c.Msg != nil {
		m.PushBulk(c.Msg)
	}
	return m
}

// Get reads a key from the key/value store
type Get struct {
	Key string
}

func parseGet(p *protocol.Parser) (*Get, error) {
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &Get{Key: key}, nil
}

// Name implements Command
func (c *Get) Name() string { return "GET" }

// ToMessage implements Command
func (c *Get) ToMessage() protocol.Message {
	return bulkArray(c.Name(), c.Key)
}

// Set writes a key to the key/value store
type Set struct {
	Key   string
	Value []byte
}

func parseSet(p *protocol.Parser) (*Set, error) {
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	value, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	return &Set{Key: key, Value: value}, nil
}

// Name implements Command
func (c *Set) Name() string { return "SET" }

// ToMessage implements Command
func (c *Set) ToMessage() protocol.Message {
	m := bulkArray(c.Name(), c.Key)
	m.PushBulk(c.Value)
	return m
}
