package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/qrgen/api"
	"github.com/openclaw/qrgen/config"
	"github.com/openclaw/qrgen/qr"
)

var version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "qrgen",
		Short: "Colored QR code generator with a web form",
	}

	// --- start command -------------------------------------------------------
	var (
		configPath string
		host       string
		port       int
		debug      bool
		trustProxy bool
	)
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the generator page and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if cmd.Flags().Changed("trust-proxy") {
				cfg.TrustProxy = trustProxy
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runStart(cfg)
		},
	}
	startCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	startCmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	startCmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	startCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	startCmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Take client IPs from X-Forwarded-For/X-Real-IP")
	root.AddCommand(startCmd)

	// --- generate command ----------------------------------------------------
	var opts generateOptions
	generateCmd := &cobra.Command{
		Use:   "generate [text]",
		Short: "Write a QR code for text without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.OutOrStdout(), args[0], opts)
		},
	}
	generateCmd.Flags().StringVar(&opts.FG, "fg", "black", "Module color")
	generateCmd.Flags().StringVar(&opts.BG, "bg", "white", "Background color")
	generateCmd.Flags().StringVarP(&opts.Format, "format", "f", "png", "Output format: png, svg or dataurl")
	generateCmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Output file (default stdout)")
	generateCmd.Flags().IntVar(&opts.ModuleSize, "module-size", qr.DefaultOptions().ModuleSize, "Pixels per module")
	root.AddCommand(generateCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qrgen %s\n", version)
		},
	})

	return root
}

// runStart wires the renderer into the HTTP server and blocks until SIGINT
// or SIGTERM.
func runStart(cfg *config.Config) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	log.Info("starting qrgen", "version", version, "addr", cfg.Addr(), "debug", cfg.Debug)

	limiter := api.NewIPLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	if limiter != nil {
		log.Info("rate limiting /generate", "rate", cfg.RateLimit.Rate, "burst", cfg.RateLimit.Burst)
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(&api.Server{
			Renderer:     qr.New(qr.DefaultOptions()),
			Log:          log,
			Version:      version,
			StartTime:    time.Now(),
			MaxBodyBytes: cfg.MaxBodyBytes,
			Limiter:      limiter,
			TrustProxy:   cfg.TrustProxy,
		}),
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		IdleTimeout:  cfg.IdleTimeout.Duration,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "url", fmt.Sprintf("http://%s/", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}
