package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/EnabledTalentV2/ETBackendV2/internal/bootstrap"
	"github.com/EnabledTalentV2/ETBackendV2/internal/queue"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/config"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/metrics"
	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/server"
	"github.com/EnabledTalentV2/ETBackendV2/internal/workerproc"
)

const memoryQueueConcurrency = 2

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// With the in-process queue there is no separate worker binary, so the
	// API drains parse and rank jobs itself.
	if app.MemoryQueue != nil {
		app.MemoryQueue.Start(ctx, memoryQueueConcurrency, func(ctx context.Context, msg queue.Message) error {
			metrics.IncJobsReceived()
			return workerproc.Dispatch(ctx, app, msg)
		})
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
