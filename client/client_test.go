package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniminio/miniminio/client"
	"github.com/miniminio/miniminio/command"
	"github.com/miniminio/miniminio/lua"
	"github.com/miniminio/miniminio/protocol"
	"github.com/miniminio/miniminio/server"
	"github.com/miniminio/miniminio/storage"
)

func dialTestServer(t *testing.T) *client.Client {
	t.Helper()

	stores, err := storage.NewStores(4)
	require.NoError(t, err)

	srv := server.NewServer("127.0.0.1:0", command.NewExecutor(stores, lua.NewEngine(stores.KV)))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientKeyValue(t *testing.T) {
	c := dialTestServer(t)

	pong, err := c.Ping(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("PONG"), pong)

	echo, err := c.Ping([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), echo)

	_, ok, err := c.Get("foo")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("foo", []byte("bar")))
	require.NoError(t, c.Set("empty", []byte{}))

	value, ok, err := c.Get("foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("bar"), value)

	value, ok, err = c.Get("empty")
	require.NoError(t, err)
	assert.True(t, ok, "empty value must not read back as absent")
	assert.Empty(t, value)
}

func TestClientMultipartUpload(t *testing.T) {
	c := dialTestServer(t)

	id, err := c.CreateMultipartUpload("bucket", "report.csv", "v3")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.UploadPart(id, 1, []byte("a,b\n")))
	require.NoError(t, c.UploadPart(id, 2, []byte("1,2\n")))
	require.NoError(t, c.CompleteMultipartUpload(id, 1, 2))

	data, ok, err := c.GetObject("bucket", "report.csv", "v3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a,b\n1,2\n"), data)

	_, ok, err = c.GetObject("bucket", "report.csv", "v4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClientServerErrors(t *testing.T) {
	c := dialTestServer(t)

	err := c.UploadPart("missing", 1, []byte("x"))
	var serverErr *client.ServerError
	require.True(t, errors.As(err, &serverErr), "got %v", err)
	assert.Contains(t, serverErr.Message, "no such upload")

	err = c.CompleteMultipartUpload("missing")
	require.True(t, errors.As(err, &serverErr), "got %v", err)

	// The connection survives command errors
	_, err = c.Ping(nil)
	assert.NoError(t, err)
}

func TestClientEval(t *testing.T) {
	c := dialTestServer(t)

	reply, err := c.Eval("return {KEYS[1], ARGV[1]}", []string{"k"}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, protocol.Array(protocol.BulkString("k"), protocol.BulkString("a")), reply)

	_, err = c.Eval("error('boom')", nil, nil)
	var serverErr *client.ServerError
	assert.True(t, errors.As(err, &serverErr), "got %v", err)
}

func TestClientDialFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Dial(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
