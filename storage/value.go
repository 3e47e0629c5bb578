package storage

import (
	"strconv"
	"time"
)

// ObjectPartLocation describes where one part of an object's data lives
type ObjectPartLocation struct {
	UploadID   string
	PartNumber int
	DataKey    string // key of the part bytes in the data store
	Offset     int64  // offset of the part within the assembled object
	Length     int64
	Checksum   uint64 // xxhash of the part bytes
}

// ObjectLocation is the metadata record of a stored object version
type ObjectLocation struct {
	Bucket    string
	Key       string
	Version   string
	Size      int64
	Parts     []ObjectPartLocation
	Metadata  map[string]string
	CreatedAt time.Time
}

// Clone returns a deep copy of the location
func (o ObjectLocation) Clone() ObjectLocation {
	out := o
	if o.Parts != nil {
		out.Parts = append([]ObjectPartLocation(nil), o.Parts...)
	}
	if o.Metadata != nil {
		out.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// MultipartUpload is the record created when a multipart upload starts
type MultipartUpload struct {
	UploadID  string
	Bucket    string
	Key       string
	Version   string
	CreatedAt time.Time

	// Completed is set once the object version has been assembled. A
	// completed upload accepts no further parts.
	Completed bool
}

// ObjectKey returns the store key of an object version. Each field is
// quoted so that separators inside bucket or key names cannot make two
// versions share a key.
func ObjectKey(bucket, key, version string) string {
	return strconv.Quote(bucket) + "/" + strconv.Quote(key) + "/" + strconv.Quote(version)
}

// PartKey returns the data store key of an uploaded part
func PartKey(uploadID string, partNumber int) string {
	return uploadID + "/" + strconv.Itoa(partNumber)
}
