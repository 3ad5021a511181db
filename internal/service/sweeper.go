package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/workflow"
)

const (
	sweepBatch  = 100
	systemActor = "system"
)

// ExpireHolds cancels every pending registration whose hold has run out
// and releases its stock. It returns the number of registrations expired.
func (s *RegistrationService) ExpireHolds(ctx context.Context) (int, error) {
	system := model.Actor{ID: systemActor}
	expired := 0
	for {
		ids, err := s.regs.ExpiredHolds(ctx, s.clock(), sweepBatch)
		if err != nil {
			return expired, err
		}

		progressed := false
		for _, id := range ids {
			_, changed, err := s.apply(ctx, id, system, workflow.ActionExpire, workflow.Input{}, anyone)
			switch {
			case err == nil:
				if changed {
					expired++
					progressed = true
				}
			case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrNotFound):
				// Approved or cancelled since it was listed.
			default:
				return expired, err
			}
		}
		if len(ids) < sweepBatch || !progressed {
			return expired, nil
		}
	}
}

// RunHoldSweeper calls ExpireHolds every interval until ctx is cancelled.
func (s *RegistrationService) RunHoldSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.ExpireHolds(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Error("hold sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired holds", zap.Int("count", n))
			}
		}
	}
}
