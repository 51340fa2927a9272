package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"docintel-platform/internal/logger"
)

// StartStaleJobSweeper schedules a periodic sweep that fails documents
// stuck in processing. Returns the scheduler so the caller can stop it on
// shutdown.
func StartStaleJobSweeper(registry *DocumentRegistry, timeout time.Duration) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	scheduler.Every(5).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		swept, err := registry.SweepStale(ctx, timeout)
		if err != nil {
			logger.Error("stale job sweep failed", "error", err)
			return
		}
		if swept > 0 {
			logger.Info("stale job sweep completed", "failed_documents", swept)
		}
	})

	scheduler.StartAsync()
	logger.Info("stale job sweeper started", "timeout", timeout.String())
	return scheduler
}
