package auditor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/logger"
)

type Producer struct {
	interval  time.Duration
	batchSize int
	wallets   walletLister
	logger    logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- uuid.UUID) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting wallet audit producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				sent, ok := p.sweep(ctx, out)
				if !ok {
					return
				}
				p.logger.Debug("Wallet audit sweep finished", "wallets", sent)
			}
		}
	}()

	return idleStopped
}

// sweep pages through all wallets once
// Returns false if ctx was done while sending
func (p *Producer) sweep(ctx context.Context, out chan<- uuid.UUID) (int, bool) {
	sent := 0
	after := uuid.Nil

	for {
		ids, err := p.wallets.ListUserIDs(ctx, after, p.batchSize)
		if err != nil {
			p.logger.Error("Failed to list wallets", "error", err, "after", after)
			return sent, ctx.Err() == nil
		}

		for _, id := range ids {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context while sending wallets")
				return sent, false
			case out <- id:
				sent++
			}
		}

		if len(ids) < p.batchSize {
			return sent, true
		}
		after = ids[len(ids)-1]
	}
}
