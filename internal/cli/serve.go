package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miniminio/miniminio"
	"github.com/miniminio/miniminio/storage"
)

// shutdownTimeout bounds how long the metrics endpoint may take to drain
const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the miniminio server",
		Long:  `Start the miniminio server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is MINIMINIO_<flag> (e.g. MINIMINIO_SHARDS=32)`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, v, cmd.ErrOrStderr())
		},
	}

	key := "addr"
	cmd.Flags().String(key, miniminio.DefaultAddr, wrapString("The address on which the server will listen"))

	key = "shards"
	cmd.Flags().Int(key, storage.DefaultShardCount, wrapString("Number of shards per store. Fixed for the lifetime of the process"))

	key = "log-level"
	cmd.Flags().String(key, "info", wrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics-addr"
	cmd.Flags().String(key, "", wrapString("Address for the Prometheus /metrics endpoint. Empty disables it"))

	key = "scripting"
	cmd.Flags().Bool(key, true, wrapString("Enable Lua scripting (EVAL, EVALSHA, SCRIPT LOAD)"))

	return cmd
}

// serve runs a node until ctx is done
func serve(ctx context.Context, v *viper.Viper, logOut io.Writer) error {
	level, err := parseLogLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	set := metrics.NewSet()
	node, err := miniminio.New(
		miniminio.WithAddr(v.GetString("addr")),
		miniminio.WithShardCount(v.GetInt("shards")),
		miniminio.WithLogger(logger),
		miniminio.WithMetricsSet(set),
		miniminio.WithScripting(v.GetBool("scripting")),
	)
	if err != nil {
		return err
	}
	if err := node.Start(ctx); err != nil {
		return err
	}
	defer node.Close()

	var metricsServer *http.Server
	if addr := v.GetString("metrics-addr"); addr != "" {
		metricsServer = newMetricsServer(addr, set)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", "error", err, "addr", addr)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", addr)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics endpoint shutdown", "error", err)
		}
	}
	return nil
}

// newMetricsServer exposes set and the process metrics in Prometheus format
func newMetricsServer(addr string, set *metrics.Set) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		set.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s)
	}
}
