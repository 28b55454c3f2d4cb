package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chating-app/chating/client/internal/fakebackend"
)

func newDevServerCmd() *cobra.Command {
	var (
		addr   string
		public string
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory chat backend for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if public == "" {
				public = "http://" + addr
				if strings.HasPrefix(addr, ":") {
					public = "http://localhost" + addr
				}
			}
			backend := fakebackend.NewUnstarted(public)
			defer backend.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           backend.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			log.Info().Str("addr", addr).Msg("dev backend listening")
			return runServer(cmd.Context(), srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().StringVar(&public, "public-url", "", "base reported for uploaded files (default http://localhost<addr>)")
	return cmd
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
