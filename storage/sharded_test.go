package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedInsertGet(t *testing.T) {
	store, err := NewBytes(DefaultShardCount)
	require.NoError(t, err)

	store.Insert("foo", []byte("bar"))

	value, ok := store.Get("foo")
	require.True(t, ok)
	assert.Equal(t, []byte("bar"), value)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestShardedAnyShardCount(t *testing.T) {
	for n := 1; n <= 16; n++ {
		t.Run(fmt.Sprintf("shards=%d", n), func(t *testing.T) {
			store, err := NewSharded[int](n)
			require.NoError(t, err)
			assert.Equal(t, n, store.ShardCount())

			for i := 0; i < 200; i++ {
				store.Insert(fmt.Sprintf("key-%d", i), i)
			}
			for i := 0; i < 200; i++ {
				value, ok := store.Get(fmt.Sprintf("key-%d", i))
				require.True(t, ok)
				assert.Equal(t, i, value)
			}

			_, ok := store.Get("never-inserted")
			assert.False(t, ok)
			assert.Equal(t, 200, store.Len())
		})
	}
}

func TestShardedInsertOverwrites(t *testing.T) {
	store, err := NewSharded[string](4)
	require.NoError(t, err)

	store.Insert("k", "one")
	store.Insert("k", "two")

	value, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "two", value)
	assert.Equal(t, 1, store.Len())
}

func TestShardedInvalidShardCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewSharded[int](n)
		assert.ErrorIs(t, err, ErrInvalidShardCount)
	}
}

func TestShardedStableRouting(t *testing.T) {
	store, err := NewSharded[int](7)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		first := store.ShardFor(key)
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, 7)
		for j := 0; j < 3; j++ {
			assert.Equal(t, first, store.ShardFor(key))
		}
	}
}

func TestShardedGetReturnsCopy(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		store, err := NewBytes(2)
		require.NoError(t, err)

		store.Insert("k", []byte("abc"))
		value, _ := store.Get("k")
		value[0] = 'X'

		again, _ := store.Get("k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("cloner", func(t *testing.T) {
		store, err := NewSharded[ObjectLocation](2)
		require.NoError(t, err)

		store.Insert("obj", ObjectLocation{
			Bucket:   "b",
			Parts:    []ObjectPartLocation{{PartNumber: 1}},
			Metadata: map[string]string{"a": "1"},
		})

		value, _ := store.Get("obj")
		value.Parts[0].PartNumber = 99
		value.Metadata["a"] = "changed"

		again, _ := store.Get("obj")
		assert.Equal(t, 1, again.Parts[0].PartNumber)
		assert.Equal(t, "1", again.Metadata["a"])
	})
}

// keysInDistinctShards returns two keys that route to different shards
func keysInDistinctShards(t *testing.T, s *Sharded[int]) (string, string) {
	t.Helper()
	first := "key-0"
	for i := 1; i < 1000; i++ {
		key := fmt.Sprintf("key-%d", i)
		if s.ShardFor(key) != s.ShardFor(first) {
			return first, key
		}
	}
	t.Fatal("no keys in distinct shards")
	return "", ""
}

func TestShardIsolation(t *testing.T) {
	store, err := NewSharded[int](8)
	require.NoError(t, err)

	held, free := keysInDistinctShards(t, store)
	store.Insert(held, 1)

	// Hold the lock of held's shard as a slow operation would
	sh := &store.shards[store.ShardFor(held)]
	sh.mu.Lock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Insert(free, 2)
		value, ok := store.Get(free)
		assert.True(t, ok)
		assert.Equal(t, 2, value)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		sh.mu.Unlock()
		t.Fatal("operation on another shard blocked behind a held shard lock")
	}

	blocked := make(chan int)
	go func() {
		value, _ := store.Get(held)
		blocked <- value
	}()

	select {
	case <-blocked:
		t.Fatal("operation on the locked shard did not wait for the lock")
	case <-time.After(50 * time.Millisecond):
	}

	sh.mu.Unlock()

	select {
	case value := <-blocked:
		assert.Equal(t, 1, value)
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not resume after the shard lock was released")
	}
}

func TestShardedConcurrentAccess(t *testing.T) {
	store, err := NewSharded[string](DefaultShardCount)
	require.NoError(t, err)

	numGoroutines := 50
	numOperations := 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key_%d_%d", id, j)
				store.Insert(key, key)
				if value, ok := store.Get(key); !ok || value != key {
					t.Errorf("Get(%s) = %q, %v", key, value, ok)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines*numOperations, store.Len())
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, `"photos"/"cat.png"/"v1"`, ObjectKey("photos", "cat.png", "v1"))
	assert.Equal(t, "upload-1/3", PartKey("upload-1", 3))

	distinct := [][3]string{
		{"a", "b/c", "v"},
		{"a/b", "c", "v"},
		{"a", "b@v", ""},
		{"a", "b", "v@"},
		{"a", "b", "@v"},
		{`a"`, "b", "v"},
		{"a", `"/"b`, "v"},
		{"a\\", "b", "v"},
	}
	seen := make(map[string][3]string, len(distinct))
	for _, fields := range distinct {
		k := ObjectKey(fields[0], fields[1], fields[2])
		if prev, ok := seen[k]; ok {
			t.Errorf("ObjectKey(%q) and ObjectKey(%q) both = %q", prev, fields, k)
		}
		seen[k] = fields
	}
}
