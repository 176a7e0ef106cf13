package simulator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trustpay-sync/internal/core/domain"
	"trustpay-sync/internal/core/ports"
)

// DefaultSweepInterval paces the expiry sweeper. Deadlines are measured
// in days, so a coarse tick is plenty.
const DefaultSweepInterval = time.Minute

// StartExpirySweeper runs a goroutine that periodically expires unfunded
// escrows past their deadline and broadcasts the status change to any
// clients still watching those channels. Stops when ctx ends.
func StartExpirySweeper(ctx context.Context, log zerolog.Logger, store *Store, publisher ports.EventPublisher, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweepExpired(ctx, log, store, publisher, now.UTC())
			}
		}
	}()
}

func sweepExpired(ctx context.Context, log zerolog.Logger, store *Store, publisher ports.EventPublisher, now time.Time) {
	for _, esc := range store.ExpireStale(now) {
		env := domain.EventEnvelope{
			Type:     domain.EventStatusChange,
			EscrowID: esc.ID,
			Status:   domain.EscrowStatusExpired,
			Data: mustJSON(domain.EventData{
				OldStatus: domain.EscrowStatusInitiated,
				NewStatus: domain.EscrowStatusExpired,
				PayerID:   esc.PayerID,
				PayeeID:   esc.PayeeID,
			}),
		}
		if err := publisher.PublishEscrowEvent(ctx, env); err != nil {
			log.Warn().Err(err).Str("escrow_id", esc.ID).Msg("expiry broadcast failed")
		}
	}
}
