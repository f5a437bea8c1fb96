package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/routekit/config"
	"github.com/angeloszaimis/routekit/internal/metrics"
	"github.com/angeloszaimis/routekit/pkg/logger"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("routekit failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routekit",
		Short:         "A minimal HTTP/HTTPS request router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo routes",
		Long: `Serve loads configuration from --config (or config.yaml in ./config
or the working directory), applies environment overrides such as
SERVER_PORT and TLS_ENABLED, and serves until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
				return err
			}

			cfg, err := config.LoadFrom(v, configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a config file")
	cmd.Flags().IntP("port", "p", 8080, "port to listen on")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "routekit %s (%s) %s %s/%s\n",
				version, commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	var collector *metrics.Collector
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus("routekit")
		collector = metrics.NewCollector(cfg.Metrics.BufferSize, log, metrics.WithPrometheus(prom))
		collector.Start(ctx)
	}

	app, err := newApp(cfg, log, collector, prom)
	if err != nil {
		log.Error("Failed to build router", slog.Any("err", err))
		return err
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if err := app.ListenAddr(addr); err != nil {
		log.Error("Failed to listen", slog.String("addr", addr), slog.Any("err", err))
		return err
	}

	log.Info("Router listening",
		slog.String("addr", app.Addr().String()),
		slog.Bool("tls", cfg.TLS.Enabled),
		slog.Any("routes", app.Routes()))

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- app.Wait()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := app.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error serving requests", slog.Any("err", err))
			return err
		}
	}

	return nil
}
