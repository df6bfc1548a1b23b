package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docinsight/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and gRPC health when GRPC_ADDR is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer startGops(a.cfg.Server.Gops, a.logger)()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, a)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides PORT)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC health listen address (overrides GRPC_ADDR)")
	_ = v.BindPFlag("server.http_addr", serveCmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.grpc_addr", serveCmd.Flags().Lookup("grpc-addr"))

	rootCmd.AddCommand(serveCmd)
}

// runServe serves until ctx is done, then drains both servers within the shutdown timeout.
func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg.Server
	health := server.NewHealth()
	handler := server.NewRouter(
		server.NewAnalyzeHandler(a.processor, a.cfg.Upload.MaxBytes, a.logger),
		health,
		a.logger,
	)
	httpSrv := server.NewHTTPServer(cfg, handler)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			_ = httpLis.Close()
			return err
		}
	}
	grpcSrv := server.NewGRPCServer(health)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http serving", "addr", httpLis.Addr().String())
		if err := httpSrv.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if grpcLis != nil {
		g.Go(func() error {
			a.logger.Info("grpc health serving", "addr", grpcLis.Addr().String())
			return grpcSrv.Serve(grpcLis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down...")
		health.SetServing(false)

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(sctx)

		stopped := make(chan struct{})
		go func() { grpcSrv.GracefulStop(); close(stopped) }()
		select {
		case <-stopped:
		case <-sctx.Done():
			grpcSrv.Stop()
		}
		a.logger.Info("stopped")
		return err
	})
	return g.Wait()
}
