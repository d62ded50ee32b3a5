package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"jarvis/internal/bridge"
	"jarvis/internal/config"
	"jarvis/internal/logging"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socket := cli.StringP("socket", "s", "", "Socket to listen on")
	table := cli.StringP("table", "t", "", "Platform table override (YAML)")
	strictApps := cli.Bool("strict-apps", false, "Only launch applications listed in the table")
	cli.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Setup(os.Stdout, level)

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg := config.LoadBridge()
	if cli.CommandLine.Changed("socket") {
		cfg.Socket = *socket
	}
	if cli.CommandLine.Changed("table") {
		cfg.Table = *table
	}
	if cli.CommandLine.Changed("strict-apps") {
		cfg.StrictApps = *strictApps
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	host, err := bridge.Open(cfg.Table, cfg.StrictApps)
	if err != nil {
		log.Error("Failed to load platform table", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Serve(ctx, cfg.Socket, host); err != nil {
		log.Error("Failed bridge server", "err", err)
		os.Exit(1)
	}
	log.Info("Bridge stopped")
}
