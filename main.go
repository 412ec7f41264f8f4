package main

import (
	"context"
	"fmt"
	"io"
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
	"github.com/openclaw/qrgen/store"
	"github.com/openclaw/qrgen/webhook"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "qrgen",
		Short: "QR code generation service",
	}

	// --- start command -------------------------------------------------------
	var configPath string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the QR code HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(configPath)
		},
	}
	startCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(startCmd)

	// --- generate command ----------------------------------------------------
	var genConfigPath, genOut string
	var genSize int
	generateCmd := &cobra.Command{
		Use:   "generate [data]",
		Short: "Render a QR code into the upload directory or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.OutOrStdout(), genConfigPath, args[0], genSize, genOut)
		},
	}
	generateCmd.Flags().StringVarP(&genConfigPath, "config", "c", "config.yaml", "Path to config file")
	generateCmd.Flags().IntVarP(&genSize, "size", "s", 0, "Image edge length in pixels (default from config)")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Write the PNG to this path instead of the upload directory")
	root.AddCommand(generateCmd)

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check the health of a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:5001", "Service HTTP address")
	root.AddCommand(statusCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrgen %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(out io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
}

// runStart is the main service entrypoint that wires all components together.
func runStart(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	log := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting qrgen", "version", version, "addr", cfg.Addr(), "upload_dir", cfg.UploadDir)

	// 3. Upload directory
	uploads, err := store.NewUploads(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}

	// 4. Optional generation history
	var history *store.HistoryStore
	opts := qr.Options{
		DefaultSize: cfg.DefaultSize,
		MaxSize:     cfg.MaxSize,
		PublicURL:   cfg.PublicURL,
	}
	if cfg.History.Enabled {
		history, err = store.NewHistoryStore(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer history.Close()
		opts.Recorder = history
		log.Info("generation history enabled", "db_path", cfg.History.DBPath)
	}

	// 5. Optional webhook
	sender := webhook.NewSender(cfg.Webhook.URL, cfg.Webhook.Timeout.Duration, cfg.Webhook.DedupTTL.Duration, log)
	if sender.Enabled() {
		opts.Notifier = sender
		log.Info("generation webhook enabled", "url", cfg.Webhook.URL)
	}

	generator := qr.NewGenerator(uploads, opts, log)

	// 6. Start HTTP server
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(&api.Server{
			Generator: generator,
			History:   history,
			UploadDir: uploads.Dir(),
			Log:       log,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 7. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runGenerate renders a single QR code without starting the server.
func runGenerate(w io.Writer, configPath, data string, size int, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if size == 0 {
		size = cfg.DefaultSize
	}

	if out != "" {
		png, _, err := qr.RenderPNG(data, size, cfg.DefaultSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintln(w, out)
		return nil
	}

	uploads, err := store.NewUploads(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}
	gen, err := qr.NewGenerator(uploads, qr.Options{
		DefaultSize: cfg.DefaultSize,
		MaxSize:     cfg.MaxSize,
		PublicURL:   cfg.PublicURL,
	}, newLogger(os.Stderr, cfg.LogLevel)).Generate(context.Background(), data, size)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, gen.URL)
	return nil
}

// runStatus queries the service health endpoint.
func runStatus(w io.Writer, addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach service at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}
	fmt.Fprint(w, string(body))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
