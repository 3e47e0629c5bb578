// Package storage provides the sharded in-memory store used by miniminio
// and the metadata records it keeps for objects and multipart uploads.
//
// A Sharded store routes each key to one of a fixed number of partitions
// by hashing it with xxhash. Each partition has its own mutex, so
// operations on keys that land in different partitions proceed in
// parallel; operations on the same partition take turns. Reads copy the
// value out while the lock is held and never hand out a reference into
// the partition.
//
// Basic usage:
//
//	store, err := storage.NewBytes(16)
//	if err != nil {
//		return err
//	}
//	store.Insert("foo", []byte("bar"))
//	value, ok := store.Get("foo")
//
// The store is memory only. There is no delete, expiry or persistence.
package storage
