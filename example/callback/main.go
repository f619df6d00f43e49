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

	callback := func(batch []*jmeter.Result) error {
		for _, res := range batch {
			fmt.Printf("%s label=%s code=%s count=%d bytes=%d elapsed=%s\n",
				res.End.Format(time.RFC3339Nano),
				res.Label,
				res.ResponseCode,
				res.SampleCount,
				res.Bytes,
				res.Duration(),
			)
		}
		return nil
	}

	rt, err := jmeter.NewRuntime(cfg, jmeter.WithResultSink(jmeter.NewCallbackSink("stdout", callback)))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
