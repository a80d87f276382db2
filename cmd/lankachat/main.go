package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const rootLongDesc string = `lankachat relays chat messages to a chain of text-generation
providers and keeps each user's conversation history.

Configuration is read from the environment (APP_*, CHAT_*, DATABASE_URL).
Without a subcommand the HTTP service is started.`

func newRootCmd() *cobra.Command {
	serveCmd := newServeCmd()

	cmd := &cobra.Command{
		Use:           "lankachat",
		Short:         "Chat relay service",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	cmd.AddCommand(serveCmd, newHistoryCmd(), newProvidersCmd())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
