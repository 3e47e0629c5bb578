package command

import (
	"math"
	"strconv"

	"github.com/miniminio/miniminio/protocol"
)

// CreateMultipartUpload starts an upload for one object version. The
// reply is the new upload id.
type CreateMultipartUpload struct {
	Bucket  string
	Key     string
	Version string
}

// NewCreateMultipartUpload returns the request for bucket/key@version
func NewCreateMultipartUpload(bucket, key, version string) *CreateMultipartUpload {
	return &CreateMultipartUpload{Bucket: bucket, Key: key, Version: version}
}

func parseCreateMultipartUpload(p *protocol.Parser) (*CreateMultipartUpload, error) {
	bucket, err := p.NextString()
	if err != nil {
		return nil, err
	}
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	version, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &CreateMultipartUpload{Bucket: bucket, Key: key, Version: version}, nil
}

// Name implements Command
func (c *CreateMultipartUpload) Name() string { return "CreateMultipartUpload" }

// ToMessage implements Command
func (c *CreateMultipartUpload) ToMessage() protocol.Message {
	return bulkArray(c.Name(), c.Bucket, c.Key, c.Version)
}

// UploadPart stores one numbered part of a multipart upload
type UploadPart struct {
	UploadID   string
	PartNumber int
	Data       []byte
}

func parseUploadPart(p *protocol.Parser) (*UploadPart, error) {
	uploadID, err := p.NextString()
	if err != nil {
		return nil, err
	}
	partNumber, err := nextPartNumber(p)
	if err != nil {
		return nil, err
	}
	data, err := p.NextBytes()
	if err != nil {
		return nil, err
	}
	return &UploadPart{UploadID: uploadID, PartNumber: partNumber, Data: data}, nil
}

// nextPartNumber reads a part number that fits in an int on every
// platform. The executor enforces the 1..MaxPartNumber range.
func nextPartNumber(p *protocol.Parser) (int, error) {
	n, err := p.NextInt()
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, &protocol.ProtocolError{Message: "part number out of range", Data: []byte(strconv.FormatInt(n, 10))}
	}
	return int(n), nil
}

// Name implements Command
func (c *UploadPart) Name() string { return "UploadPart" }

// ToMessage implements Command
func (c *UploadPart) ToMessage() protocol.Message {
	m := bulkArray(c.Name(), c.UploadID, strconv.Itoa(c.PartNumber))
	m.PushBulk(c.Data)
	return m
}

// CompleteMultipartUpload assembles the listed parts, in order, into the
// object the upload was created for
type CompleteMultipartUpload struct {
	UploadID string
	Parts    []int
}

func parseCompleteMultipartUpload(p *protocol.Parser) (*CompleteMultipartUpload, error) {
	uploadID, err := p.NextString()
	if err != nil {
		return nil, err
	}

	parts := make([]int, 0, p.Remaining())
	for p.Remaining() > 0 {
		n, err := nextPartNumber(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
	}
	return &CompleteMultipartUpload{UploadID: uploadID, Parts: parts}, nil
}

// Name implements Command
func (c *CompleteMultipartUpload) Name() string { return "CompleteMultipartUpload" }

// ToMessage implements Command
func (c *CompleteMultipartUpload) ToMessage() protocol.Message {
	m := bulkArray(c.Name(), c.UploadID)
	for _, n := range c.Parts {
		m.Push(protocol.BulkString(strconv.Itoa(n)))
	}
	return m
}

// GetObject reads the data of a completed object version
type GetObject struct {
	Bucket  string
	Key     string
	Version string
}

func parseGetObject(p *protocol.Parser) (*GetObject, error) {
	bucket, err := p.NextString()
	if err != nil {
		return nil, err
	}
	key, err := p.NextString()
	if err != nil {
		return nil, err
	}
	version, err := p.NextString()
	if err != nil {
		return nil, err
	}
	return &GetObject{Bucket: bucket, Key: key, Version: version}, nil
}

// Name implements Command
func (c *GetObject) Name() string { return "GetObject" }

// ToMessage implements Command
func (c *GetObject) ToMessage() protocol.Message {
	return bulkArray(c.Name(), c.Bucket, c.Key, c.Version)
}
