package command

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/miniminio/miniminio/protocol"
	"github.com/miniminio/miniminio/storage"
)

// MaxPartNumber is the highest part number an upload accepts
const MaxPartNumber = 10000

var (
	// ErrUnknownCommand is returned for commands the executor does not handle
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoSuchUpload is returned when an upload id was never created
	ErrNoSuchUpload = errors.New("no such upload")

	// ErrNoSuchPart is returned when completing an upload with a part that was never uploaded
	ErrNoSuchPart = errors.New("no such part")

	// ErrInvalidPartNumber is returned for part numbers outside 1..MaxPartNumber
	ErrInvalidPartNumber = errors.New("invalid part number")

	// ErrNoParts is returned when completing an upload without listing any part
	ErrNoParts = errors.New("no parts to complete")

	// ErrUploadCompleted is returned when adding parts to, or completing, an upload that was already completed
	ErrUploadCompleted = errors.New("upload already completed")

	// ErrCorruptObject is returned when a stored part no longer matches the length or checksum recorded at completion
	ErrCorruptObject = errors.New("object data does not match its recorded checksum")

	// ErrScriptingDisabled is returned for script commands when no engine is configured
	ErrScriptingDisabled = errors.New("scripting is disabled")
)

// ScriptEngine runs Lua scripts for EVAL, EVALSHA and SCRIPT LOAD
type ScriptEngine interface {
	Eval(script string, keys []string, args []string) (interface{}, error)
	EvalSHA(sha1 string, keys []string, args []string) (interface{}, error)
	LoadScript(script string) string
}

// Executor applies commands to a set of shared stores. It is safe for
// concurrent use; all synchronization happens inside the stores.
type Executor struct {
	stores  *storage.Stores
	scripts ScriptEngine

	newID func() string
	now   func() time.Time
}

// NewExecutor returns an executor over stores. scripts may be nil, in
// which case script commands fail with ErrScriptingDisabled.
func NewExecutor(stores *storage.Stores, scripts ScriptEngine) *Executor {
	return &Executor{
		stores:  stores,
		scripts: scripts,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Execute applies cmd and returns the reply. A non-nil error is a
// command-level failure; the connection stays usable and the caller
// reports it with ErrorReply.
func (e *Executor) Execute(cmd Command) (protocol.Message, error) {
	switch c := cmd.(type) {
	case *Ping:
		if c.Msg == nil {
			return protocol.Simple("PONG"), nil
		}
		return protocol.Bulk(c.Msg), nil

	case *Get:
		value, ok := e.stores.KV.Get(c.Key)
		if !ok {
			return protocol.Null(), nil
		}
		return protocol.Bulk(value), nil

	case *Set:
		e.stores.KV.Insert(c.Key, c.Value)
		return protocol.Simple("OK"), nil

	case *CreateMultipartUpload:
		return e.createMultipartUpload(c), nil

	case *UploadPart:
		return e.uploadPart(c)

	case *CompleteMultipartUpload:
		return e.completeMultipartUpload(c)

	case *GetObject:
		return e.getObject(c)

	case *Eval:
		if e.scripts == nil {
			return protocol.Message{}, ErrScriptingDisabled
		}
		result, err := e.scripts.Eval(c.Script, c.Keys, c.Args)
		if err != nil {
			return protocol.Message{}, err
		}
		return ScriptReply(result), nil

	case *EvalSHA:
		if e.scripts == nil {
			return protocol.Message{}, ErrScriptingDisabled
		}
		result, err := e.scripts.EvalSHA(c.SHA1, c.Keys, c.Args)
		if err != nil {
			return protocol.Message{}, err
		}
		return ScriptReply(result), nil

	case *ScriptLoad:
		if e.scripts == nil {
			return protocol.Message{}, ErrScriptingDisabled
		}
		return protocol.BulkString(e.scripts.LoadScript(c.Script)), nil

	default:
		return protocol.Message{}, fmt.Errorf("%w '%s'", ErrUnknownCommand, cmd.Name())
	}
}

func (e *Executor) createMultipartUpload(c *CreateMultipartUpload) protocol.Message {
	upload := storage.MultipartUpload{
		UploadID:  e.newID(),
		Bucket:    c.Bucket,
		Key:       c.Key,
		Version:   c.Version,
		CreatedAt: e.now(),
	}
	e.stores.Uploads.Insert(upload.UploadID, upload)
	return protocol.BulkString(upload.UploadID)
}

func (e *Executor) uploadPart(c *UploadPart) (protocol.Message, error) {
	if c.PartNumber < 1 || c.PartNumber > MaxPartNumber {
		return protocol.Message{}, fmt.Errorf("%w %d", ErrInvalidPartNumber, c.PartNumber)
	}
	upload, ok := e.stores.Uploads.Get(c.UploadID)
	if !ok {
		return protocol.Message{}, fmt.Errorf("%w '%s'", ErrNoSuchUpload, c.UploadID)
	}
	if upload.Completed {
		return protocol.Message{}, fmt.Errorf("%w '%s'", ErrUploadCompleted, c.UploadID)
	}

	e.stores.Parts.Insert(storage.PartKey(c.UploadID, c.PartNumber), c.Data)
	return protocol.Simple("OK"), nil
}

// completeMultipartUpload records an object location pointing at the
// listed parts and marks the upload completed. Each store access locks one
// shard at a time, so a part written while this runs can still land after
// its checksum was taken; getObject then reports ErrCorruptObject.
func (e *Executor) completeMultipartUpload(c *CompleteMultipartUpload) (protocol.Message, error) {
	upload, ok := e.stores.Uploads.Get(c.UploadID)
	if !ok {
		return protocol.Message{}, fmt.Errorf("%w '%s'", ErrNoSuchUpload, c.UploadID)
	}
	if upload.Completed {
		return protocol.Message{}, fmt.Errorf("%w '%s'", ErrUploadCompleted, c.UploadID)
	}
	if len(c.Parts) == 0 {
		return protocol.Message{}, ErrNoParts
	}

	location := storage.ObjectLocation{
		Bucket:    upload.Bucket,
		Key:       upload.Key,
		Version:   upload.Version,
		Parts:     make([]storage.ObjectPartLocation, 0, len(c.Parts)),
		CreatedAt: e.now(),
	}

	var offset int64
	for _, n := range c.Parts {
		if n < 1 || n > MaxPartNumber {
			return protocol.Message{}, fmt.Errorf("%w %d", ErrInvalidPartNumber, n)
		}
		dataKey := storage.PartKey(c.UploadID, n)
		data, ok := e.stores.Parts.Get(dataKey)
		if !ok {
			return protocol.Message{}, fmt.Errorf("%w %d", ErrNoSuchPart, n)
		}
		location.Parts = append(location.Parts, storage.ObjectPartLocation{
			UploadID:   c.UploadID,
			PartNumber: n,
			DataKey:    dataKey,
			Offset:     offset,
			Length:     int64(len(data)),
			Checksum:   xxhash.Sum64(data),
		})
		offset += int64(len(data))
	}
	location.Size = offset

	e.stores.Objects.Insert(storage.ObjectKey(upload.Bucket, upload.Key, upload.Version), location)

	upload.Completed = true
	e.stores.Uploads.Insert(upload.UploadID, upload)
	return protocol.Simple("OK"), nil
}

func (e *Executor) getObject(c *GetObject) (protocol.Message, error) {
	location, ok := e.stores.Objects.Get(storage.ObjectKey(c.Bucket, c.Key, c.Version))
	if !ok {
		return protocol.Null(), nil
	}

	data := make([]byte, 0, location.Size)
	for _, part := range location.Parts {
		chunk, ok := e.stores.Parts.Get(part.DataKey)
		if !ok {
			return protocol.Message{}, fmt.Errorf("%w %d", ErrNoSuchPart, part.PartNumber)
		}
		if int64(len(chunk)) != part.Length || xxhash.Sum64(chunk) != part.Checksum {
			return protocol.Message{}, fmt.Errorf("%w: part %d", ErrCorruptObject, part.PartNumber)
		}
		data = append(data, chunk...)
	}
	return protocol.Bulk(data), nil
}

// ErrorReply encodes a command-level error. The protocol has no error
// variant, so errors travel as simple messages prefixed with "ERR ".
func ErrorReply(err error) protocol.Message {
	return protocol.Simple(sanitize("ERR " + err.Error()))
}

// sanitize replaces line terminators so text fits in a simple message
func sanitize(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch == '\r' || ch == '\n' {
			b[i] = ' '
		}
	}
	return string(b)
}

// ScriptReply converts a script result into a reply message. Strings
// become bulk, numbers and true become simple decimal text, nil and false
// become null, and arrays are converted element by element. Tables with
// an "err" or "ok" field become error or status replies.
func ScriptReply(v interface{}) protocol.Message {
	switch val := v.(type) {
	case nil:
		return protocol.Null()
	case string:
		return protocol.BulkString(val)
	case int64:
		return protocol.Simple(strconv.FormatInt(val, 10))
	case float64:
		return protocol.Simple(strconv.FormatInt(int64(val), 10))
	case bool:
		if val {
			return protocol.Simple("1")
		}
		return protocol.Null()
	case []interface{}:
		items := make([]protocol.Message, len(val))
		for i, item := range val {
			items[i] = ScriptReply(item)
		}
		return protocol.Array(items...)
	case map[string]interface{}:
		if msg, ok := val["err"].(string); ok {
			return protocol.Simple(sanitize("ERR " + msg))
		}
		if msg, ok := val["ok"].(string); ok {
			return protocol.Simple(sanitize(msg))
		}
		return protocol.Null()
	default:
		return protocol.BulkString(fmt.Sprint(val))
	}
}
