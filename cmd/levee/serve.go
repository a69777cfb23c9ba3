package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/momentics/levee/server"
)

func serveCmd() *cobra.Command {
	cfg := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket echo server",
		Long: `Run the WebSocket echo server. Every data frame a client sends is
queued on a shared channel and echoed back by a single consumer; control
frames are handled inline. Prometheus metrics are served on --metrics-path.

Examples:
  levee serve
  levee serve --addr 127.0.0.1:9000 --driver epoll`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := server.New(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.ListenAddr, "addr", "a", cfg.ListenAddr, "Listen address")
	f.StringVar(&cfg.WSPath, "ws-path", cfg.WSPath, "WebSocket route")
	f.StringVar(&cfg.MetricsPath, "metrics-path", cfg.MetricsPath, "Prometheus route (empty disables)")
	f.StringVar(&cfg.Driver, "driver", cfg.Driver, "Hub wakeup driver: loop or epoll")
	f.IntVar(&cfg.ReadBufferSize, "read-buffer", cfg.ReadBufferSize, "Socket read chunk size")
	f.Uint64Var(&cfg.MaxFramePayload, "max-payload", cfg.MaxFramePayload, "Largest accepted frame payload")
	f.IntVar(&cfg.LoopBatchSize, "loop-batch", cfg.LoopBatchSize, "Events per event loop batch")
	f.IntVar(&cfg.LoopCapacity, "loop-capacity", cfg.LoopCapacity, "Pending event loop notifications")
	f.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Per-frame write deadline (must be positive)")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period on shutdown")

	return cmd
}
