package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/config"
	"github.com/marmos91/wwwserver/pkg/server"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

const usage = `wwwserver - tick-driven web server

Usage:
  wwwserver <command> [flags]

Commands:
  init      Write a sample configuration, site file and document root
  start     Start the server
  version   Print version information

Run 'wwwserver <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "version":
		fmt.Printf("wwwserver %s (commit %s)\n", version, commit)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to write the config file (default: $XDG_CONFIG_HOME/wwwserver/config.yaml)")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Start the server with: wwwserver start")
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/wwwserver/config.yaml)")
	_ = fs.Parse(args)

	if *configPath == "" && !config.ConfigExists() {
		logger.Warn("No config file at %s, using defaults (run 'wwwserver init' to create one)", config.GetDefaultConfigPath())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to set log output: %w", err)
	}

	logger.Info("wwwserver %s starting", version)
	logger.Debug("Log level: %s, format: %s, output: %s", cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics come first so the medium can register its collectors.
	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		logger.Info("Metrics enabled on port %d", cfg.Server.Metrics.Port)
	}

	site, err := config.CreateSiteStore(ctx, &cfg.Site, cfg.Adapters.WWW.BufferSize)
	if err != nil {
		return fmt.Errorf("failed to create site store: %w", err)
	}
	files, err := config.CreateMedium(ctx, &cfg.Medium)
	if err != nil {
		_ = site.Close()
		return fmt.Errorf("failed to create medium: %w", err)
	}
	defer func() {
		if err := config.CloseStores(site, files); err != nil {
			logger.Warn("Error closing stores: %v", err)
		}
	}()

	adapters, err := config.CreateAdapters(cfg, metricsResult.WWWMetrics)
	if err != nil {
		return err
	}

	srv := server.New(site, files)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received (%v), initiating graceful shutdown...", sig)
		cancel()

		if err := <-serverDone; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("Server stopped")
	}

	if metricsResult.Server != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		if err := metricsResult.Server.Stop(stopCtx); err != nil {
			logger.Warn("Error stopping metrics server: %v", err)
		}
	}

	return nil
}
