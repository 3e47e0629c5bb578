package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/miniminio/miniminio/command"
	"github.com/miniminio/miniminio/protocol"
)

// Server accepts client connections and executes their commands against a
// shared executor. Each connection is served by its own goroutine.
type Server struct {
	executor *command.Executor
	logger   *slog.Logger

	// Server configuration
	addr string

	// Connection management
	listener net.Listener
	sessions *xsync.MapOf[uint64, *session]
	nextID   atomic.Uint64

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	// Metrics
	set             *metrics.Set
	connCount       *metrics.Counter
	commandCount    *metrics.Counter
	errorCount      *metrics.Counter
	protocolErrors  *metrics.Counter
	commandDuration *metrics.Histogram
}

// session is one connected client
type session struct {
	id     uint64
	conn   net.Conn
	proto  *protocol.Connection
	server *Server
	once   sync.Once
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger. A nil logger leaves the default in place.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsSet registers the server metrics in set instead of a private set
func WithMetricsSet(set *metrics.Set) Option {
	return func(s *Server) {
		if set != nil {
			s.set = set
		}
	}
}

// NewServer creates a server listening on addr once started
func NewServer(addr string, executor *command.Executor, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		executor: executor,
		logger:   slog.Default(),
		addr:     addr,
		sessions: xsync.NewMapOf[uint64, *session](),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.set == nil {
		s.set = metrics.NewSet()
	}

	s.connCount = s.set.NewCounter("miniminio_connections_total")
	s.commandCount = s.set.NewCounter("miniminio_commands_total")
	s.errorCount = s.set.NewCounter("miniminio_command_errors_total")
	s.protocolErrors = s.set.NewCounter("miniminio_protocol_errors_total")
	s.commandDuration = s.set.NewHistogram("miniminio_command_duration_seconds")
	s.set.NewGauge("miniminio_connections_active", func() float64 {
		return float64(s.sessions.Size())
	})

	return s
}

// Start binds the listener and begins accepting connections
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.logger.Info("server listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections(listener)

	return nil
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	s.sessions.Range(func(_ uint64, sess *session) bool {
		sess.close()
		return true
	})

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected_clients": s.sessions.Size(),
		"total_connections": s.connCount.Get(),
		"total_commands":    s.commandCount.Get(),
		"total_errors":      s.errorCount.Get(),
		"protocol_errors":   s.protocolErrors.Get(),
	}
}

// WritePrometheus writes the server metrics in Prometheus text format
func (s *Server) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// acceptConnections accepts new client connections
func (s *Server) acceptConnections(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return // Server is shutting down
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.handleNewClient(conn)
	}
}

// handleNewClient registers a session for conn and starts serving it
func (s *Server) handleNewClient(conn net.Conn) {
	s.connCount.Inc()

	sess := &session{
		id:     s.nextID.Add(1),
		conn:   conn,
		proto:  protocol.NewConnection(conn),
		server: s,
	}
	s.sessions.Store(sess.id, sess)

	// Stop may have ranged over the sessions before this one was stored
	if s.ctx.Err() != nil {
		sess.close()
		return
	}

	s.wg.Add(1)
	go sess.handle()
}

// close closes the connection and removes the session from the registry
func (c *session) close() {
	c.once.Do(func() {
		c.proto.Close()
		c.server.sessions.Delete(c.id)
	})
}

// handle reads messages until the peer disconnects or sends malformed input
func (c *session) handle() {
	defer c.server.wg.Done()
	defer c.close()

	logger := c.server.logger.With("remote", c.conn.RemoteAddr().String())
	logger.Debug("client connected")

	for {
		msg, err := c.proto.ReadMessage()
		if err != nil {
			c.readFailed(logger, err)
			return
		}

		cmd, err := command.Parse(msg)
		if err != nil {
			c.server.protocolErrors.Inc()
			logger.Warn("malformed command", "error", err)
			c.writeError(err)
			return
		}

		reply := c.server.execute(logger, cmd)
		if err := c.proto.WriteMessage(reply); err != nil {
			if c.server.ctx.Err() == nil {
				logger.Debug("write failed", "error", err)
			}
			return
		}
	}
}

// readFailed logs why the read loop ended. Malformed input gets a final
// error reply before the connection is dropped.
func (c *session) readFailed(logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("client disconnected")
	case c.server.ctx.Err() != nil:
		// Server shutting down
	case protocol.IsProtocolError(err):
		c.server.protocolErrors.Inc()
		logger.Warn("protocol error", "error", err)
		c.writeError(err)
	default:
		logger.Debug("connection closed", "error", err)
	}
}

func (c *session) writeError(err error) {
	_ = c.proto.WriteMessage(command.ErrorReply(err))
}

// execute runs cmd and turns command-level failures into error replies
func (s *Server) execute(logger *slog.Logger, cmd command.Command) protocol.Message {
	start := time.Now()
	defer s.commandDuration.UpdateDuration(start)

	s.commandCount.Inc()
	s.set.GetOrCreateCounter(fmt.Sprintf(`miniminio_command_calls_total{command=%q}`, metricName(cmd))).Inc()

	reply, err := s.executor.Execute(cmd)
	if err != nil {
		s.errorCount.Inc()
		logger.Debug("command failed", "command", cmd.Name(), "error", err)
		return command.ErrorReply(err)
	}
	return reply
}

// metricName bounds label cardinality to the known command names
func metricName(cmd command.Command) string {
	if _, ok := cmd.(*command.Unknown); ok {
		return "unknown"
	}
	return strings.ToLower(cmd.Name())
}
