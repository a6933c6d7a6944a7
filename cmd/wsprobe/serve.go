package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gows "github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mickaelvieira/reconnecting-websocket/server"
)

// newServeCmd runs an echo server answering keep-alive pings,
// handy to watch a client reconnect when it is restarted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a websocket echo server on /ws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           echoHandler(logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown error", "error", err)
				}
			}()

			logger.Info("listening", "addr", cfg.Listen)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func echoHandler(logger *slog.Logger) http.Handler {
	upgrader := gows.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("upgrade failure", "error", err)
			return
		}

		s := server.NewServerSocket(conn, server.WithLogger(logger))
		logger.Info("client connected", "id", s.Id(), "remote", r.RemoteAddr)

		go func() {
			for d := range s.ReadBinaryMessages() {
				if err := s.SendBinaryMessage(d); err != nil {
					return
				}
			}
		}()
		go func() {
			for m := range s.ReadTextMessages() {
				if err := s.SendTextMessage(m); err != nil {
					return
				}
			}
			logger.Info("client disconnected", "id", s.Id(), "pings", s.Pings())
		}()
	})

	return mux
}
