package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"squeeze/internal/config"
	"squeeze/internal/coordinator"
	"squeeze/internal/daemon"
	"squeeze/internal/history"
	"squeeze/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := history.Open(cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("open history store: %v", err)
	}

	coord := coordinator.New(cfg, coordinator.Deps{
		History: store,
		Logger:  logger,
	})

	d, err := daemon.New(cfg, coord, store, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("squeezed shutting down", logging.String("signal", "interrupt"))
}
