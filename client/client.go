package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/miniminio/miniminio/command"
	"github.com/miniminio/miniminio/protocol"
)

// errorPrefix marks a simple reply that carries a command error
const errorPrefix = "ERR "

// ErrUnexpectedReply is returned when a reply has the wrong shape for the request
var ErrUnexpectedReply = errors.New("unexpected reply")

// ServerError is a command error reported by the server. The connection
// stays usable after one.
type ServerError struct {
	Message string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// Client issues commands over a single connection. Requests are
// serialized, so a Client may be shared between goroutines.
type Client struct {
	mu   sync.Mutex
	conn *protocol.Connection
	addr string
}

// Dial connects to the server at addr
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{
		conn: protocol.NewConnection(conn),
		addr: addr,
	}, nil
}

// Addr returns the address the client dialed
func (c *Client) Addr() string {
	return c.addr
}

// Do sends cmd and returns the raw reply. Error replies are returned as
// *ServerError.
func (c *Client) Do(cmd command.Command) (protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteMessage(cmd.ToMessage()); err != nil {
		return protocol.Message{}, fmt.Errorf("failed to send %s: %w", cmd.Name(), err)
	}

	reply, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Message{}, fmt.Errorf("failed to read %s reply: %w", cmd.Name(), err)
	}

	if reply.Type == protocol.TypeSimple && strings.HasPrefix(reply.Str, errorPrefix) {
		return protocol.Message{}, &ServerError{Message: strings.TrimPrefix(reply.Str, errorPrefix)}
	}
	return reply, nil
}

// Ping checks the connection. With a nil msg the server answers PONG.
func (c *Client) Ping(msg []byte) ([]byte, error) {
	reply, err := c.Do(&command.Ping{Msg: msg})
	if err != nil {
		return nil, err
	}
	switch reply.Type {
	case protocol.TypeSimple:
		return []byte(reply.Str), nil
	case protocol.TypeBulk:
		return reply.Data, nil
	default:
		return nil, unexpected("PING", reply)
	}
}

// Get returns the value stored at key. ok is false when the key is absent.
func (c *Client) Get(key string) (value []byte, ok bool, err error) {
	return c.bulkOrNull(&command.Get{Key: key})
}

// Set stores value at key
func (c *Client) Set(key string, value []byte) error {
	return c.expectOK(&command.Set{Key: key, Value: value})
}

// CreateMultipartUpload starts an upload and returns its id
func (c *Client) CreateMultipartUpload(bucket, key, version string) (string, error) {
	cmd := command.NewCreateMultipartUpload(bucket, key, version)
	reply, err := c.Do(cmd)
	if err != nil {
		return "", err
	}
	if reply.Type != protocol.TypeBulk {
		return "", unexpected(cmd.Name(), reply)
	}
	return string(reply.Data), nil
}

// UploadPart stores data as part partNumber of the upload
func (c *Client) UploadPart(uploadID string, partNumber int, data []byte) error {
	return c.expectOK(&command.UploadPart{UploadID: uploadID, PartNumber: partNumber, Data: data})
}

// CompleteMultipartUpload assembles the listed parts, in order, into the object
func (c *Client) CompleteMultipartUpload(uploadID string, parts ...int) error {
	return c.expectOK(&command.CompleteMultipartUpload{UploadID: uploadID, Parts: parts})
}

// GetObject returns the data of a completed object version
func (c *Client) GetObject(bucket, key, version string) (data []byte, ok bool, err error) {
	return c.bulkOrNull(&command.GetObject{Bucket: bucket, Key: key, Version: version})
}

// Eval runs a Lua script on the server
func (c *Client) Eval(script string, keys []string, args []string) (protocol.Message, error) {
	return c.Do(&command.Eval{Script: script, Keys: keys, Args: args})
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) expectOK(cmd command.Command) error {
	reply, err := c.Do(cmd)
	if err != nil {
		return err
	}
	if reply.Type != protocol.TypeSimple || reply.Str != "OK" {
		return unexpected(cmd.Name(), reply)
	}
	return nil
}

func (c *Client) bulkOrNull(cmd command.Command) ([]byte, bool, error) {
	reply, err := c.Do(cmd)
	if err != nil {
		return nil, false, err
	}
	switch reply.Type {
	case protocol.TypeNull:
		return nil, false, nil
	case protocol.TypeBulk:
		return reply.Data, true, nil
	default:
		return nil, false, unexpected(cmd.Name(), reply)
	}
}

func unexpected(name string, reply protocol.Message) error {
	return fmt.Errorf("%w to %s: %s %q", ErrUnexpectedReply, name, reply.Type, reply.String())
}
