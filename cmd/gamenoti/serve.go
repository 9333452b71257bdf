package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/gamenoti/internal/profile"
	"github.com/hrygo/gamenoti/plugin/timeout"
	"github.com/hrygo/gamenoti/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), p)
		},
	}

	d := profile.Default()
	cmd.Flags().String("addr", d.Addr, "address of server")
	cmd.Flags().Int("port", d.Port, "port of server")
	cmd.Flags().String("inbox", d.InboxDir, "directory watched for screenshots (disabled when empty)")
	for _, name := range []string{"addr", "port", "inbox"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func serve(ctx context.Context, p *profile.Profile) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := server.NewServer(ctx, p)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout.ShutdownTimeout)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return nil
}
