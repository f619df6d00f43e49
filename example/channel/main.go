package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/H6688chen/jmeter"
)

func main() {
	cfg, err := jmeter.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snk, batches, closeBatches := jmeter.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("report", batches)

	rt, err := jmeter.NewRuntime(cfg, jmeter.WithResultSink(snk))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []*jmeter.Result) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d results at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
		// TODO: forward to a reporting backend.
	}
}
