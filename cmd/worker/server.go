package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/config"
	"receipt-service/internal/infrastructure/queue"
	"receipt-service/internal/shared"
)

// asynqServer wraps asynq.Server for graceful shutdown.
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer configures and starts the worker pool. Queue weights
// give email delivery the most slots, uploads the middle tier, rendering a
// small dedicated share and the recovery sweep a single slot.
func setupAsynqServer(redisCfg config.RedisConfig, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Host,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency: 18,
			Queues: map[string]int{
				shared.QueueEmailDelivery:     10,
				shared.QueueCloudinaryUpload:  5,
				shared.QueueReceiptGeneration: 2,
				shared.QueueRecovery:          1,
			},
			RetryDelayFunc: queue.RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("task failed - type: %s, error: %v", task.Type(), err)
			}),
		},
	)

	go func() {
		log.Println("worker starting...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("worker failed: %v", err)
		}
	}()

	return &asynqServer{Server: srv}
}

// Shutdown drains in-flight tasks with a deadline.
func (s *asynqServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("worker shutting down (waiting max 30s)...")
	s.Server.Shutdown()

	<-ctx.Done()
	if ctx.Err() == context.DeadlineExceeded {
		log.Println("worker shutdown timeout exceeded")
	}
}
