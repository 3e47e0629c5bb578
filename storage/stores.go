package storage

// Stores bundles the sharded stores a server shares between connections
type Stores struct {
	// KV holds plain key/value pairs written by SET
	KV *Sharded[[]byte]
	// Parts holds uploaded part bytes keyed by PartKey
	Parts *Sharded[[]byte]
	// Objects holds object metadata keyed by ObjectKey
	Objects *Sharded[ObjectLocation]
	// Uploads holds multipart upload records keyed by upload id
	Uploads *Sharded[MultipartUpload]
}

// NewStores creates every store with the same shard count
func NewStores(shards int) (*Stores, error) {
	kv, err := NewBytes(shards)
	if err != nil {
		return nil, err
	}
	parts, err := NewBytes(shards)
	if err != nil {
		return nil, err
	}
	objects, err := NewSharded[ObjectLocation](shards)
	if err != nil {
		return nil, err
	}
	uploads, err := NewSharded[MultipartUpload](shards)
	if err != nil {
		return nil, err
	}

	return &Stores{
		KV:      kv,
		Parts:   parts,
		Objects: objects,
		Uploads: uploads,
	}, nil
}
