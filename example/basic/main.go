package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	logmanagement "github.com/jadavkeshav/log-management"
)

func main() {
	flow, err := logmanagement.Conf("../../config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("relay exited: %v", err)
	}
}
