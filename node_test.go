package miniminio_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/miniminio/miniminio"
	"github.com/miniminio/miniminio/client"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startNode(t *testing.T, opts ...miniminio.Option) *miniminio.Node {
	t.Helper()

	opts = append([]miniminio.Option{
		miniminio.WithAddr("127.0.0.1:0"),
		miniminio.WithLogger(quietLogger()),
	}, opts...)

	node, err := miniminio.New(opts...)
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}
	t.Cleanup(func() { _ = node.Close() })

	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start node: %v", err)
	}
	return node
}

func dial(t *testing.T, node *miniminio.Node) *client.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, node.Addr())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew(t *testing.T) {
	node, err := miniminio.New()
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}
	defer node.Close()

	if node.Addr() != miniminio.DefaultAddr {
		t.Errorf("expected default addr %s, got %s", miniminio.DefaultAddr, node.Addr())
	}
	if node.Stores() == nil {
		t.Fatal("Expected stores to be non-nil")
	}
}

func TestNewWithInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  miniminio.Option
	}{
		{"empty addr", miniminio.WithAddr("")},
		{"zero shards", miniminio.WithShardCount(0)},
		{"negative shards", miniminio.WithShardCount(-3)},
		{"nil logger", miniminio.WithLogger(nil)},
		{"nil metrics set", miniminio.WithMetricsSet(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := miniminio.New(tt.opt)
			if !errors.Is(err, miniminio.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNodeShardCount(t *testing.T) {
	node, err := miniminio.New(miniminio.WithShardCount(7))
	if err != nil {
		t.Fatal(err)
	}
	defer node.Close()

	if got := node.Stores().KV.ShardCount(); got != 7 {
		t.Errorf("expected 7 shards, got %d", got)
	}
	if got := node.Stores().Objects.ShardCount(); got != 7 {
		t.Errorf("expected 7 object shards, got %d", got)
	}
}

func TestNodeStartTwiceAndClose(t *testing.T) {
	node := startNode(t)

	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("second Start should be a no-op, got %v", err)
	}

	if err := node.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := node.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := node.Start(context.Background()); !errors.Is(err, miniminio.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNodeStartAddressInUse(t *testing.T) {
	first := startNode(t)

	second, err := miniminio.New(
		miniminio.WithAddr(first.Addr()),
		miniminio.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	err = second.Start(context.Background())
	var connErr *miniminio.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Addr != first.Addr() {
		t.Errorf("expected addr %s in error, got %s", first.Addr(), connErr.Addr)
	}
}

func TestNodeScriptingDisabled(t *testing.T) {
	node := startNode(t, miniminio.WithScripting(false))
	c := dial(t, node)

	_, err := c.Eval("return 1", nil, nil)
	var serverErr *client.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestNodeEndToEnd(t *testing.T) {
	set := metrics.NewSet()
	node := startNode(t, miniminio.WithMetricsSet(set), miniminio.WithShardCount(8))
	c := dial(t, node)

	if err := c.Set("greeting", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	value, ok, err := c.Get("greeting")
	if err != nil || !ok || string(value) != "hello" {
		t.Fatalf("Get returned %q, %v, %v", value, ok, err)
	}

	id, err := c.CreateMultipartUpload("media", "clip.mp4", "1")
	if err != nil {
		t.Fatal(err)
	}

	// Upload parts concurrently over separate connections
	chunks := [][]byte{
		bytes.Repeat([]byte("a"), 5000),
		bytes.Repeat([]byte("b"), 7000),
		bytes.Repeat([]byte("c"), 100),
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(chunks))
	for i, chunk := range chunks {
		pc := dial(t, node)
		wg.Add(1)
		go func(n int, data []byte) {
			defer wg.Done()
			errs <- pc.UploadPart(id, n, data)
		}(i+1, chunk)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UploadPart failed: %v", err)
		}
	}

	if err := c.CompleteMultipartUpload(id, 1, 2, 3); err != nil {
		t.Fatal(err)
	}

	data, ok, err := c.GetObject("media", "clip.mp4", "1")
	if err != nil || !ok {
		t.Fatalf("GetObject returned %v, %v", ok, err)
	}
	if want := bytes.Join(chunks, nil); !bytes.Equal(data, want) {
		t.Fatalf("object data mismatch: got %d bytes, want %d", len(data), len(want))
	}

	stats := node.Stats()
	if stats["keys"] != 1 {
		t.Errorf("expected 1 key, got %v", stats["keys"])
	}
	if stats["objects"] != 1 {
		t.Errorf("expected 1 object, got %v", stats["objects"])
	}
	if stats["shards"] != 8 {
		t.Errorf("expected 8 shards, got %v", stats["shards"])
	}

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	if !bytes.Contains(buf.Bytes(), []byte(fmt.Sprintf("miniminio_connections_total %d", 1+len(chunks)))) {
		t.Errorf("unexpected metrics output:\n%s", buf.String())
	}
}

func TestVersionInfo(t *testing.T) {
	info := miniminio.VersionInfo()
	if info["version"] != miniminio.Version {
		t.Errorf("expected version %s, got %s", miniminio.Version, info["version"])
	}
}
