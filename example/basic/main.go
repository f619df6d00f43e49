package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/H6688chen/jmeter"
)

func main() {
	cfg, err := jmeter.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := jmeter.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("sampler runtime exited: %v", err)
	}
}
