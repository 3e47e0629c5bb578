package command

import (
	"strconv"
	"strings"

	"github.com/miniminio/miniminio/protocol"
)

// Eval runs a Lua script against the key/value store
type Eval struct {
	Script string
	Keys   []string
	Args   []string
}

func parseEval(p *protocol.Parser) (*Eval, error) {
	script, err := p.NextString()
	if err != nil {
		return nil, err
	}
	keys, args, err := parseKeysAndArgs(p)
	if err != nil {
		return nil, err
	}
	return &Eval{Script: script, Keys: keys, Args: args}, nil
}

// Name implements Command
func (c *Eval) Name() string { return "EVAL" }

// ToMessage implements Command
func (c *Eval) ToMessage() protocol.Message {
	return keysAndArgsMessage(c.Name(), c.Script, c.Keys, c.Args)
}

// EvalSHA runs a script previously loaded with SCRIPT LOAD
type EvalSHA struct {
	SHA1 string
	Keys []string
	Args []string
}

func parseEvalSHA(p *protocol.Parser) (*EvalSHA, error) {
	sha, err := p.NextString()
	if err != nil {
		return nil, err
	}
	keys, args, err := parseKeysAndArgs(p)
	if err != nil {
		return nil, err
	}
	return &EvalSHA{SHA1: sha, Keys: keys, Args: args}, nil
}

// Name implements Command
func (c *EvalSHA) Name() string { return "EVALSHA" }

// ToMessage implements Command
func (c *EvalSHA) ToMessage() protocol.Message {
	return keysAndArgsMessage(c.Name(), c.SHA1, c.Keys, c.Args)
}

// ScriptLoad caches a script and replies with its SHA1
type ScriptLoad struct {
	Script string
}

func parseScript(p *protocol.Parser) (Command, error) {
	sub, err := p.NextString()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(sub, "LOAD") {
		return &Unknown{CommandName: "SCRIPT " + sub}, drain(p)
	}
	script, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &ScriptLoad{Script: script}, nil
}

// Name implements Command
func (c *ScriptLoad) Name() string { return "SCRIPT" }

// ToMessage implements Command
func (c *ScriptLoad) ToMessage() protocol.Message {
	return bulkArray(c.Name(), "LOAD", c.Script)
}

// parseKeysAndArgs reads "numkeys key... arg..."
func parseKeysAndArgs(p *protocol.Parser) ([]string, []string, error) {
	numKeys, err := p.NextInt()
	if err != nil {
		return nil, nil, err
	}
	if numKeys < 0 || numKeys > int64(p.Remaining()) {
		return nil, nil, &protocol.ProtocolError{Message: "number of keys out of range"}
	}

	keys := make([]string, numKeys)
	for i := range keys {
		if keys[i], err = p.NextString(); err != nil {
			return nil, nil, err
		}
	}

	args := make([]string, 0, p.Remaining())
	for p.Remaining() > 0 {
		arg, err := p.NextString()
		if err != nil {
			return nil, nil, err
		}
		args = append(args, arg)
	}
	return keys, args, nil
}

func keysAndArgsMessage(name, head string, keys, args []string) protocol.Message {
	m := bulkArray(name, head, strconv.Itoa(len(keys)))
	for _, key := range keys {
		m.Push(protocol.BulkString(key))
	}
	for _, arg := range args {
		m.Push(protocol.BulkString(arg))
	}
	return m
}

// drain consumes the remaining elements of an unrecognized subcommand
func drain(p *protocol.Parser) error {
	for p.Remaining() > 0 {
		if _, err := p.NextBytes(); err != nil {
			return err
		}
	}
	return nil
}
