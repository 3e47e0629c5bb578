// Package command defines the requests a miniminio server understands
// and applies them to the shared stores.
//
// Each request type is a value object: Parse builds it from a decoded
// array message through protocol.Parser, enforcing exact arity, and
// ToMessage turns it back into the array message a client sends.
//
// Supported commands:
//   - PING [message]
//   - GET key, SET key value
//   - CreateMultipartUpload bucket key version
//   - UploadPart uploadId partNumber data
//   - CompleteMultipartUpload uploadId partNumber...
//   - GetObject bucket key version
//   - EVAL script numkeys key... arg..., EVALSHA sha1 numkeys ..., SCRIPT LOAD script
//
// Command names are matched case-insensitively.
package command
