package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniminio/miniminio/protocol"
)

func TestParserFields(t *testing.T) {
	m := protocol.Array(
		protocol.BulkString("CreateMultipartUpload"),
		protocol.Simple("bucket"),
		protocol.Bulk([]byte{0xff, 0x00}),
		protocol.BulkString("42"),
	)

	p, err := protocol.NewParser(m)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Remaining())

	name, err := p.NextString()
	require.NoError(t, err)
	assert.Equal(t, "CreateMultipartUpload", name)

	bucket, err := p.NextBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("bucket"), bucket)

	raw, err := p.NextBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00}, raw)

	n, err := p.NextInt()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	require.NoError(t, p.Finish())

	_, err = p.NextString()
	assert.True(t, errors.Is(err, protocol.ErrEndOfStream))
}

func TestParserRequiresArray(t *testing.T) {
	_, err := protocol.NewParser(protocol.Simple("PING"))
	assert.True(t, protocol.IsProtocolError(err))

	_, err = protocol.NewParser(protocol.Null())
	assert.True(t, protocol.IsProtocolError(err))
}

func TestParserRejectsWrongShape(t *testing.T) {
	p, err := protocol.NewParser(protocol.Array(
		protocol.Null(),
		protocol.Array(protocol.Simple("nested")),
		protocol.Bulk([]byte{0xff}),
		protocol.BulkString("nan"),
	))
	require.NoError(t, err)

	_, err = p.NextString()
	assert.True(t, protocol.IsProtocolError(err), "null as string")

	_, err = p.NextBytes()
	assert.True(t, protocol.IsProtocolError(err), "array as bytes")

	_, err = p.NextString()
	assert.True(t, protocol.IsProtocolError(err), "invalid UTF-8 as string")

	_, err = p.NextInt()
	assert.True(t, protocol.IsProtocolError(err), "non-numeric as int")
}

func TestParserFinishRejectsExtraElements(t *testing.T) {
	p, err := protocol.NewParser(protocol.Array(protocol.BulkString("GET"), protocol.BulkString("a")))
	require.NoError(t, err)

	_, err = p.NextString()
	require.NoError(t, err)

	err = p.Finish()
	assert.True(t, protocol.IsProtocolError(err))
}

func TestParserEmptyArray(t *testing.T) {
	p, err := protocol.NewParser(protocol.Array())
	require.NoError(t, err)

	_, err = p.NextBytes()
	assert.ErrorIs(t, err, protocol.ErrEndOfStream)
	assert.NoError(t, p.Finish())
}
