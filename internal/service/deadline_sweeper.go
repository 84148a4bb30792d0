package service

import (
	"context"
	"time"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/logger"
)

// DeadlineSweeper периодически отменяет от имени системы работы в статусе
// pending, дедлайн которых истёк.
type DeadlineSweeper struct {
	jobs     *JobService
	interval time.Duration
}

func NewDeadlineSweeper(jobs *JobService, interval time.Duration) *DeadlineSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DeadlineSweeper{jobs: jobs, interval: interval}
}

// Run запускает цикл свипера до отмены контекста.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cancelled, err := s.jobs.CancelExpired(ctx, 100)
			if err != nil {
				logger.Log.WithError(err).Error("deadline sweep failed")
				continue
			}
			if cancelled > 0 {
				logger.Log.WithField("cancelled", cancelled).Info("expired pending jobs cancelled")
			}
		}
	}
}
