package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"cafe/internal/core/ports"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	orderPollJob      *OrderPollJob
	ledgerEvictionJob *LedgerEvictionJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	poller Poller,
	pollInterval time.Duration,
	ledger ports.PrintLedger,
	forgetter OrderForgetter,
	retention time.Duration,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		orderPollJob:      NewOrderPollJob(poller, pollInterval, logger),
		ledgerEvictionJob: NewLedgerEvictionJob(ledger, forgetter, retention, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.orderPollJob.Start(); err != nil {
		return fmt.Errorf("failed to start order poll job: %w", err)
	}

	if err := jm.ledgerEvictionJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.orderPollJob.Stop()
		return fmt.Errorf("failed to start ledger eviction job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.ledgerEvictionJob.Stop()
	jm.orderPollJob.Stop()
}
