package jobs

import (
	"context"
	"log/slog"
	"time"

	"cafe/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long dispatch records and finished orders are kept.
const DefaultRetention = 24 * time.Hour

// OrderForgetter drops finished orders from an in-memory view.
type OrderForgetter interface {
	Forget(cutoff time.Time) int
}

// LedgerEvictionJob trims the print ledger and the coordinator's view of
// finished orders once a minute.
type LedgerEvictionJob struct {
	ledger    ports.PrintLedger
	forgetter OrderForgetter
	retention time.Duration
	now       func() time.Time
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewLedgerEvictionJob creates an eviction job. forgetter may be nil.
func NewLedgerEvictionJob(
	ledger ports.PrintLedger,
	forgetter OrderForgetter,
	retention time.Duration,
	logger *slog.Logger,
) *LedgerEvictionJob {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &LedgerEvictionJob{
		ledger:    ledger,
		forgetter: forgetter,
		retention: retention,
		now:       time.Now,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger.With("component", "ledger_eviction_job"),
	}
}

// Start schedules the eviction every minute.
func (j *LedgerEvictionJob) Start() error {
	_, err := j.cron.AddFunc("@every 1m", func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Ledger eviction job started", "retention", j.retention.String())
	return nil
}

// Run performs one eviction pass.
func (j *LedgerEvictionJob) Run(ctx context.Context) {
	cutoff := j.now().Add(-j.retention)

	evicted, err := j.ledger.Evict(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "Print ledger eviction failed", "error", err)
	}

	forgotten := 0
	if j.forgetter != nil {
		forgotten = j.forgetter.Forget(cutoff)
	}

	if evicted > 0 || forgotten > 0 {
		j.logger.DebugContext(ctx, "Evicted expired records", "ledger", evicted, "orders", forgotten)
	}
}

// Stop stops the ledger eviction job.
func (j *LedgerEvictionJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Ledger eviction job stopped")
}
