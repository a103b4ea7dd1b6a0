package room

import (
	"context"
	"errors"
	"time"

	appErr "blackjack-service/pkg/errors"
	"blackjack-service/pkg/logger"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// StartSweeper launches the timeout sweeper once. It stops with ctx.
func (s *Service) StartSweeper(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.runSweeper(ctx)
	})
}

func (s *Service) runSweeper(ctx context.Context) {
	logger.Log.Info("room sweeper started",
		zap.Duration("interval", s.cfg.PollInterval),
		zap.Int("workers", s.cfg.SweepWorkers),
	)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("room sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				logger.Log.Warn("room sweep error", zap.Error(err))
			}
		}
	}
}

// Sweep runs ForceTimeout on every stored room with bounded concurrency.
func (s *Service) Sweep(ctx context.Context) error {
	ids, err := s.store.IDs(ctx)
	if err != nil {
		return err
	}

	p := pool.New().WithMaxGoroutines(s.cfg.SweepWorkers)
	for _, id := range ids {
		roomID := id
		p.Go(func() {
			if _, err := s.ForceTimeout(ctx, roomID); err != nil {
				if errors.Is(err, appErr.ErrRoomNotFound) || errors.Is(err, appErr.ErrRoomBusy) {
					return
				}
				logger.Log.Warn("room timeout failed",
					zap.String("roomID", roomID),
					zap.Error(err),
				)
			}
		})
	}
	p.Wait()
	return nil
}
