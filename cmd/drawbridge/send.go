package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/drawbridge-sh/drawbridge/internal/client"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <type> [params-json]",
		Short: "Send a command to the canvas and print the reply",
		Long: `Send a single command envelope to the browser canvas and print the
correlated reply as JSON. The params argument, if given, must be a JSON
object and is passed through to the canvas untouched.

Example:
  drawbridge send addShape '{"shape":"rectangle","x":10,"y":10,"width":80,"height":40}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runSend,
	}
	addClientFlags(cmd)
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, ctx, cancel, err := clientSetup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	var params json.RawMessage
	if len(args) > 1 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("params is not valid JSON: %q", args[1])
		}
		params = json.RawMessage(args[1])
	}

	resp, err := client.Do(ctx, cfg, args[0], params)
	if err != nil {
		return err
	}
	fmt.Println(string(resp.Raw))
	if resp.Failed() {
		return fmt.Errorf("command failed: %s", resp.Envelope.Error)
	}
	return nil
}

func pingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the relay is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, cancel, err := clientSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			if err := client.Ping(ctx, cfg); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a browser canvas is connected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, cancel, err := clientSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			connected, err := client.BrowserConnected(ctx, cfg)
			if err != nil {
				return err
			}
			if connected {
				fmt.Println("browser connected")
				return nil
			}
			fmt.Println("browser not connected")
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

// clientSetup resolves the shared client flags into a Config and a
// timeout-bounded, interrupt-aware context.
func clientSetup(cmd *cobra.Command) (client.Config, context.Context, context.CancelFunc, error) {
	url, err := resolveRelayURL(cmd)
	if err != nil {
		return client.Config{}, nil, nil, err
	}
	logLevel, _ := cmd.Flags().GetString("log-level")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	cancel := func() {
		cancelTimeout()
		stop()
	}
	return client.Config{URL: url, Logger: newLogger(logLevel)}, ctx, cancel, nil
}
