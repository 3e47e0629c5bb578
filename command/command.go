package command

import (
	"strings"

	"github.com/miniminio/miniminio/protocol"
)

// Command is a request decoded from an array message
type Command interface {
	// Name returns the command name as sent on the wire
	Name() string

	// ToMessage encodes the command as an array message
	ToMessage() protocol.Message
}

// Unknown is a command whose name is not recognized. Its arguments are
// kept so the reply can name it.
type Unknown struct {
	CommandName string
}

// Name implements Command
func (u *Unknown) Name() string {
	return u.CommandName
}

// ToMessage implements Command
func (u *Unknown) ToMessage() protocol.Message {
	return protocol.Array(protocol.BulkString(u.CommandName))
}

// Parse decodes a command from m. The first element names the command
// (case-insensitive); the remaining elements are its arguments and must
// match its arity exactly.
func Parse(m protocol.Message) (Command, error) {
	p, err := protocol.NewParser(m)
	if err != nil {
		return nil, err
	}

	name, err := p.NextString()
	if err != nil {
		return nil, err
	}

	var cmd Command
	switch strings.ToUpper(name) {
	case "PING":
		cmd, err = parsePing(p)
	case "GET":
		cmd, err = parseGet(p)
	case "SET":
		cmd, err = parseSet(p)
	case "CREATEMULTIPARTUPLOAD":
		cmd, err = parseCreateMultipartUpload(p)
	case "UPLOADPART":
		cmd, err = parseUploadPart(p)
	case "COMPLETEMULTIPARTUPLOAD":
		cmd, err = parseCompleteMultipartUpload(p)
	case "GETOBJECT":
		cmd, err = parseGetObject(p)
	case "EVAL":
		cmd, err = parseEval(p)
	case "EVALSHA":
		cmd, err = parseEvalSHA(p)
	case "SCRIPT":
		cmd, err = parseScript(p)
	default:
		// Arguments of unknown commands are not inspected
		return &Unknown{CommandName: name}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := p.Finish(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// bulkArray builds an array message of bulk strings
func bulkArray(parts ...string) protocol.Message {
	m := protocol.Array()
	for _, part := range parts {
		m.Push(protocol.BulkString(part))
	}
	return m
}
