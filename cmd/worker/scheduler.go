package main

import (
	"log"
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/config"
	"receipt-service/internal/infrastructure/queue"
)

// asynqScheduler wraps asynq.Scheduler for graceful shutdown.
type asynqScheduler struct {
	*asynq.Scheduler
}

// setupScheduler starts the cron engine for the recovery sweep and the
// nightly cleanups.
func setupScheduler(redisCfg config.RedisConfig) *asynqScheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Host,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	if err := queue.RegisterSchedules(scheduler); err != nil {
		log.Fatalf("failed to register schedules: %v", err)
	}

	go func() {
		log.Println("scheduler starting...")
		if err := scheduler.Start(); err != nil {
			log.Fatalf("scheduler failed: %v", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

func (s *asynqScheduler) Shutdown() {
	log.Println("scheduler shutting down...")
	s.Scheduler.Shutdown()
}
