package auditor

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/metrics"
)

type Consumer struct {
	countWorkers int
	ledger       reconciler
	logger       logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan uuid.UUID) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			c.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan uuid.UUID) {
	for {
		select {
		case <-ctx.Done():
			return

		case userID, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}
			c.audit(ctx, userID)
		}
	}
}

func (c *Consumer) audit(ctx context.Context, userID uuid.UUID) {
	r, err := c.ledger.Reconcile(ctx, userID)

	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("Failed to reconcile wallet", "error", err, "user_id", userID)
		metrics.RecordWalletAudit(metrics.AuditFailed)

	case !r.Consistent():
		// Details are logged by the ledger itself
		metrics.RecordWalletAudit(metrics.AuditMismatch)

	default:
		metrics.RecordWalletAudit(metrics.AuditConsistent)
	}
}
