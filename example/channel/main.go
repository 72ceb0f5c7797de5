package main

import (
	"context"
	"fmt"
	"log"
	"time"

	logmanagement "github.com/jadavkeshav/log-management"
)

func main() {
	flow, err := logmanagement.Conf("../../config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, events, closeEvents := logmanagement.NewChannelStore("forwarder", 32)
	defer closeEvents()

	go forwardWorker("archive", events)

	if err := flow.Accept(logmanagement.AcceptStore(store)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("relay error: %v", err)
	}
}

func forwardWorker(name string, events <-chan *logmanagement.LogEvent) {
	for ev := range events {
		fmt.Printf("[%s] forwarding %s %s for %s at %s\n", name, ev.Method, ev.URL, ev.TenantID, time.Now().Format(time.RFC3339))
		// TODO: forward to downstream DB/API.
	}
}
