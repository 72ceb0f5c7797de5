package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jadavkeshav/log-management/pkg/logrelay"
)

func main() {
	flow, err := logrelay.Conf("../../config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(ev *logrelay.LogEvent) error {
		fmt.Printf("%s tenant=%s %s %s status=%d bytes=%d\n",
			ev.Timestamp.Format(time.RFC3339Nano),
			ev.TenantID,
			ev.Method,
			ev.URL,
			ev.StatusCode,
			ev.BytesSent,
		)
		return nil
	}

	if err := flow.Accept(logrelay.AcceptStoreCallback("stdout", callback)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("relay error: %v", err)
	}
}
