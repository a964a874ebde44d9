package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relaymesh/toolbridge/pkg/tooldiag"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnostics HTTP endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", ":8710", "Listen address")
	cmd.Flags().StringArray("cors-origin", nil, "Allowed CORS origin (repeatable, default *)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.Shutdown(context.Background())

	addr, _ := cmd.Flags().GetString("addr")
	origins, _ := cmd.Flags().GetStringArray("cors-origin")
	server, err := tooldiag.NewServer(manager, &tooldiag.ServerOptions{
		Addr:           addr,
		AllowedOrigins: origins,
		Logger:         newLogger(cmd),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
