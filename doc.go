// Package miniminio is a small in-memory object and key/value server.
//
// Clients talk to it over a binary, length-prefixed message protocol (see
// package protocol). Data lives in sharded stores (see package storage)
// where each shard has its own lock, so requests for keys in different
// shards never wait on each other.
//
// Basic usage:
//
//	node, err := miniminio.New(
//		miniminio.WithAddr(":6378"),
//		miniminio.WithShardCount(32),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// The server supports:
//
//   - PING, GET and SET on a key/value store
//   - multipart object uploads (CreateMultipartUpload, UploadPart,
//     CompleteMultipartUpload, GetObject)
//   - Lua scripts via EVAL, EVALSHA and SCRIPT LOAD
//
// Use package client to talk to a running node.
package miniminio
