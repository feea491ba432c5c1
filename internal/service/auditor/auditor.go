// Package auditor periodically checks every wallet balance against its transaction log
package auditor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
)

const (
	defaultInterval     = time.Hour
	defaultCountWorkers = 4
	defaultBatchSize    = 100
)

type walletLister interface {
	ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID) (models.Reconciliation, error)
}

type Config struct {
	// Time between two sweeps over all wallets
	Interval time.Duration

	CountWorkers int
	BatchSize    int
}

type Auditor struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func New(c Config, wallets walletLister, ledger reconciler, l logger.Logger) *Auditor {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.CountWorkers <= 0 {
		c.CountWorkers = defaultCountWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	return &Auditor{
		consumer: &Consumer{
			countWorkers: c.CountWorkers,
			ledger:       ledger,
			logger:       l,
		},
		producer: &Producer{
			interval:  c.Interval,
			batchSize: c.BatchSize,
			wallets:   wallets,
			logger:    l,
		},
		logger: l,
	}
}

// Run sweeps until ctx is done
// Returned channel is closed when producer and every worker have stopped
func (a *Auditor) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	userIDs := make(chan uuid.UUID)

	producerStopped := a.producer.Produce(ctx, userIDs)
	consumerStopped := a.consumer.Consume(ctx, userIDs)

	go func() {
		defer close(idleStopped)
		defer close(userIDs)
		<-producerStopped
		<-consumerStopped
		a.logger.Debug("Auditor stopped")
	}()

	return idleStopped
}
