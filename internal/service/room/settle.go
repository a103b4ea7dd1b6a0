package room

import (
	"context"
	"fmt"

	"blackjack-service/internal/service/game"
	"blackjack-service/pkg/logger"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// settle applies the round's payouts to linked accounts. It runs after the
// game has been saved with SettledRound set, so a round is charged at most
// once; a failed hand is logged and skipped, never retried.
func (s *Service) settle(ctx context.Context, g *game.Game) {
	if s.ledger == nil {
		return
	}

	var errs error
	for _, p := range g.Payouts {
		if p.AccountID == "" || p.Delta == 0 {
			continue
		}
		memo := fmt.Sprintf("room %s round %d hand %s %s", g.ID, g.Round, p.HandID, p.Result)
		if err := s.ledger.ApplyDelta(ctx, p.AccountID, p.Delta, memo); err != nil {
			logger.Log.Warn("settlement failed for hand",
				zap.String("roomID", g.ID),
				zap.Int("round", g.Round),
				zap.String("handID", p.HandID),
				zap.String("accountID", p.AccountID),
				zap.Int64("delta", p.Delta),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		logger.Log.Error("round settled with errors",
			zap.String("roomID", g.ID),
			zap.Int("round", g.Round),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}
}
