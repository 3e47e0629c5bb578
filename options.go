package miniminio

import (
	"log/slog"

	"github.com/VictoriaMetrics/metrics"

	"github.com/miniminio/miniminio/storage"
)

// DefaultAddr is the address a Node listens on unless WithAddr is given
const DefaultAddr = "127.0.0.1:6378"

// config holds the configuration for a Node
type config struct {
	// Server settings
	addr string

	// Store settings
	shardCount int

	// Observability
	logger     *slog.Logger
	metricsSet *metrics.Set

	// Behavioral options
	scripting bool
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		addr:       DefaultAddr,
		shardCount: storage.DefaultShardCount,
		logger:     slog.Default(),
		metricsSet: metrics.NewSet(),
		scripting:  true,
	}
}

// Option represents a configuration option for a Node
type Option func(*config) error

// WithAddr sets the listen address. Port 0 picks a free port.
//
// Example:
//
//	WithAddr(":6378")
//	WithAddr("127.0.0.1:0")
func WithAddr(addr string) Option {
	return func(c *config) error {
		if addr == "" {
			return &ConnectionError{
				Addr: addr,
				Err:  ErrInvalidConfig,
			}
		}
		c.addr = addr
		return nil
	}
}

// WithShardCount sets the number of shards in each store. The count is
// fixed for the lifetime of the node.
//
// Example:
//
//	WithShardCount(64)
func WithShardCount(count int) Option {
	return func(c *config) error {
		if count <= 0 {
			return ErrInvalidConfig
		}
		c.shardCount = count
		return nil
	}
}

// WithLogger sets the structured logger
//
// Example:
//
//	WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.logger = logger
		return nil
	}
}

// WithMetricsSet registers the node metrics in set, for example to expose
// them next to other metrics on one endpoint
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *config) error {
		if set == nil {
			return ErrInvalidConfig
		}
		c.metricsSet = set
		return nil
	}
}

// WithScripting enables or disables EVAL, EVALSHA and SCRIPT LOAD
func WithScripting(enabled bool) Option {
	return func(c *config) error {
		c.scripting = enabled
		return nil
	}
}
