// Package main implements wsprobe, a command line companion for the reconnecting websocket client.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "wsprobe",
		Short:        "wsprobe connects to websocket servers and keeps the connection alive",
		SilenceUsage: true,
	}

	bindFlags(rootCmd)

	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of wsprobe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("wsprobe version " + Version + "\n"))
			return err
		},
	})

	return rootCmd
}
