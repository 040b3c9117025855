package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	// Automatically set GOMEMLIMIT based on cgroup memory limits (container
	// or systemd MemoryMax=). If no cgroup limit is detected, GOMEMLIMIT is
	// left at the Go default.
	"github.com/KimMachineGun/automemlimit/memlimit"

	"github.com/drawbridge-sh/drawbridge/internal/metrics"
	"github.com/spf13/cobra"
)

var version = "dev"

const defaultPort = 8787

func init() {
	_, _ = memlimit.SetGoMemLimitWithOpts(memlimit.WithLogger(nil))
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "drawbridge",
		Short:        "Drive a browser drawing canvas from the command line",
		Long:         "Drawbridge relays drawing commands from CLI invocations to a canvas running in a browser tab.",
		SilenceUsage: true,
	}

	// Global flags.
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address for Prometheus metrics server (e.g. :9090); disabled if empty")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveMetrics creates a Metrics instance and starts the HTTP server if
// --metrics-addr or DRAWBRIDGE_METRICS_ADDR is set. Returns nil if metrics
// are disabled. The provided context controls the server's lifetime — when
// cancelled the server shuts down gracefully.
func resolveMetrics(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) (*metrics.Metrics, error) {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = os.Getenv("DRAWBRIDGE_METRICS_ADDR")
	}
	if addr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	m := metrics.New()
	go func() {
		if err := m.Serve(ctx, ln, logger); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return m, nil
}

// resolvePort returns the relay port from the --port flag or the
// DRAWBRIDGE_PORT environment variable.
func resolvePort(cmd *cobra.Command) (int, error) {
	port, _ := cmd.Flags().GetInt("port")
	if !cmd.Flags().Changed("port") {
		if v := os.Getenv("DRAWBRIDGE_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid DRAWBRIDGE_PORT %q: %w", v, err)
			}
			port = p
		}
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

// resolveIdleTimeout returns the idle shutdown duration from the
// --idle-timeout flag or the DRAWBRIDGE_IDLE_TIMEOUT environment variable
// (whole seconds).
func resolveIdleTimeout(cmd *cobra.Command) (time.Duration, error) {
	d, _ := cmd.Flags().GetDuration("idle-timeout")
	if !cmd.Flags().Changed("idle-timeout") {
		if v := os.Getenv("DRAWBRIDGE_IDLE_TIMEOUT"); v != "" {
			secs, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid DRAWBRIDGE_IDLE_TIMEOUT %q: %w", v, err)
			}
			d = time.Duration(secs) * time.Second
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("idle timeout must be positive, got %s", d)
	}
	return d, nil
}

// resolveRelayURL returns the relay WebSocket URL for client commands,
// from --url, DRAWBRIDGE_URL, or the resolved port on localhost.
func resolveRelayURL(cmd *cobra.Command) (string, error) {
	if u, _ := cmd.Flags().GetString("url"); u != "" {
		return u, nil
	}
	if u := os.Getenv("DRAWBRIDGE_URL"); u != "" {
		return u, nil
	}
	port, err := resolvePort(cmd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ws://127.0.0.1:%d/ws", port), nil
}

// addClientFlags adds the flags shared by commands that talk to a running
// relay.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "relay WebSocket URL (default ws://127.0.0.1:<port>/ws)")
	cmd.Flags().Int("port", defaultPort, "relay port used when --url is not set")
	cmd.Flags().Duration("timeout", 30*time.Second, "time to wait for the reply")
}
