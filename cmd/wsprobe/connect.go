package main

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mickaelvieira/reconnecting-websocket/client"
)

// newConnectCmd prints every message received from the server
// and sends each line read from stdin.
func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect [url]",
		Short: "Connect to a websocket server, defaults to WSPROBE_URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.URL = args[0]
			}

			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			handler := func(m any) {
				if err := out.Encode(m); err != nil {
					logger.Error("cannot print message", "error", err)
				}
			}

			opts := append(cfg.ClientOptions(),
				client.WithLogger(logger),
				client.WithMessageHandler(handler),
			)
			c := client.NewClientSocket(cfg.URL, opts...)

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if err := c.Connect(); err != nil {
				return fmt.Errorf("connect to %q: %w", cfg.URL, err)
			}

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return c.Disconnect()
				case l, ok := <-lines:
					if !ok {
						return c.Disconnect()
					}
					if err := c.SendMessage(l); err != nil {
						logger.Warn("message not sent", "error", err)
					}
				}
			}
		},
	}
}
