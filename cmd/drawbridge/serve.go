package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/drawbridge-sh/drawbridge/internal/relay"
	"github.com/drawbridge-sh/drawbridge/internal/ui"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay and serve the canvas UI",
		Long: `Start the local relay that pairs CLI commands with the browser canvas.
The canvas page is served at http://127.0.0.1:<port>/ and connects back
over WebSocket. The process exits on its own after --idle-timeout
without canvas traffic.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", defaultPort, "HTTP/WebSocket listen port")
	cmd.Flags().Duration("idle-timeout", relay.DefaultIdleTimeout, "exit after this long without canvas traffic")
	cmd.Flags().Bool("no-ui", false, "do not serve the embedded canvas page")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	port, err := resolvePort(cmd)
	if err != nil {
		return err
	}
	idleTimeout, err := resolveIdleTimeout(cmd)
	if err != nil {
		return err
	}
	noUI, _ := cmd.Flags().GetBool("no-ui")

	logLevel, _ := cmd.Flags().GetString("log-level")
	logger := newLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := resolveMetrics(ctx, cmd, logger)
	if err != nil {
		return err
	}

	var uiHandler http.Handler
	if !noUI {
		uiHandler = ui.Handler()
	}

	srv := relay.New(relay.Config{
		IdleTimeout: idleTimeout,
		Logger:      logger,
		Metrics:     m,
		UI:          uiHandler,
	})

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	logger.Info("relay listening", "addr", ln.Addr(), "idleTimeout", idleTimeout)
	if !noUI {
		logger.Info("canvas UI available", "url", fmt.Sprintf("http://127.0.0.1:%d/", port))
	}

	err = srv.Serve(ctx, ln)
	if errors.Is(err, context.Canceled) {
		return nil // interrupted
	}
	return err
}
