package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pysentry/pysentry/internal/checker"
	"github.com/pysentry/pysentry/internal/checkout"
	"github.com/pysentry/pysentry/internal/config"
	"github.com/pysentry/pysentry/internal/log"
	"github.com/pysentry/pysentry/internal/resultlog"
	"github.com/pysentry/pysentry/internal/tui/watch"
	"github.com/pysentry/pysentry/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("pysentry version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pysentry - GitHub webhook listener that checks Python files for errors

Usage:
  pysentry <command> [flags]

Commands:
  serve     Start the webhook listener in the foreground
  watch     Live terminal view of the result log
  version   Show version information
  help      Show this help message

serve flags:
  --config PATH   Path to YAML configuration (optional; env vars apply on top)

watch flags:
  --url URL       Base URL of a running pysentry (default http://127.0.0.1:5000)

Environment:
  APP_ID                  GitHub App ID
  GITHUB_WEBHOOK_SECRET   Webhook shared secret (required)
  PRIVATE_KEY_PATH        Path to the App private key
  PYSENTRY_LISTEN         Listen address override
`)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("pysentry starting", "version", version, "listen", cfg.Service.Listen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := resultlog.Open(ctx, cfg.Results.Path)
	if err != nil {
		logger.Error("failed to open result log", "path", cfg.Results.Path, "error", err)
		return 1
	}
	defer results.Close()
	logger.Info("result log opened", "path", cfg.Results.Path)

	fetcher := checkout.NewFetcher(cfg.Checks.GitBin)
	chk := checker.New(cfg.Checks.PythonBin, cfg.Checks.RunTimeout)

	server := webhook.New(webhook.Config{
		Listen: cfg.Service.Listen,
		Secret: cfg.GitHub.WebhookSecret,
	}, fetcher, chk, results, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	logger.Info("pysentry running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("pysentry stopped")
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	url := fs.String("url", "http://127.0.0.1:5000", "Base URL of a running pysentry")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if err := watch.Run(*url); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		return 1
	}
	return 0
}
