package miniminio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"github.com/miniminio/miniminio/command"
	"github.com/miniminio/miniminio/lua"
	"github.com/miniminio/miniminio/server"
	"github.com/miniminio/miniminio/storage"
)

// Node is a miniminio server together with the stores it serves
type Node struct {
	// Configuration
	config *config

	// Components
	stores   *storage.Stores
	engine   *lua.Engine
	executor *command.Executor
	server   *server.Server

	// State
	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a Node with the given options
//
// The node is created but not started. Use Start() to accept connections.
//
// Example:
//
//	node, err := miniminio.New(
//		miniminio.WithAddr(":6378"),
//		miniminio.WithShardCount(32),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
func New(opts ...Option) (*Node, error) {
	cfg := defaultConfig()

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	stores, err := storage.NewStores(cfg.shardCount)
	if err != nil {
		return nil, err
	}

	n := &Node{
		config: cfg,
		stores: stores,
	}

	// A nil *lua.Engine must not reach the executor as a non-nil interface
	var scripts command.ScriptEngine
	if cfg.scripting {
		n.engine = lua.NewEngine(stores.KV)
		scripts = n.engine
	}
	n.executor = command.NewExecutor(stores, scripts)

	n.server = server.NewServer(cfg.addr, n.executor,
		server.WithLogger(cfg.logger),
		server.WithMetricsSet(cfg.metricsSet),
	)

	return n, nil
}

// Start begins accepting connections. It returns once the listener is bound.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	if n.started {
		return nil // Already started
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := n.server.Start(); err != nil {
		n.config.logger.Error("failed to start server", "error", err, "addr", n.config.addr)
		return &ConnectionError{Addr: n.config.addr, Err: err}
	}
	n.started = true

	n.config.logger.Info("node started",
		"addr", n.server.Addr(),
		"shards", n.config.shardCount,
		"scripting", n.config.scripting,
	)
	return nil
}

// Close stops the server and closes every client connection
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if !n.started {
		return nil
	}
	if err := n.server.Stop(); err != nil {
		n.config.logger.Error("error stopping server", "error", err)
		return err
	}
	n.config.logger.Info("node stopped")
	return nil
}

// Addr returns the address the node listens on
func (n *Node) Addr() string {
	return n.server.Addr()
}

// Stores returns the stores shared by all connections
func (n *Node) Stores() *storage.Stores {
	return n.stores
}

// Executor returns the executor that applies client commands. It can be
// used to run commands in-process without a connection.
func (n *Node) Executor() *command.Executor {
	return n.executor
}

// MetricsSet returns the set the node's metrics are registered in
func (n *Node) MetricsSet() *metrics.Set {
	return n.config.metricsSet
}

// Logger returns the node's logger
func (n *Node) Logger() *slog.Logger {
	return n.config.logger
}

// Stats returns server and store statistics
func (n *Node) Stats() map[string]interface{} {
	stats := n.server.Stats()
	stats["shards"] = n.stores.KV.ShardCount()
	stats["keys"] = n.stores.KV.Len()
	stats["objects"] = n.stores.Objects.Len()
	stats["uploads"] = n.stores.Uploads.Len()
	stats["scripting"] = n.config.scripting
	stats["version"] = Version
	return stats
}
