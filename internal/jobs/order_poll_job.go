package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is how often observed merchants are re-read when no
// interval is configured.
const DefaultPollInterval = 3 * time.Second

// Poller refreshes the reconciled order feeds from the record store.
type Poller interface {
	Poll(ctx context.Context) error
}

// OrderPollJob re-reads every observed merchant's orders on a fixed interval
// so that facts missed by the push channel still reach subscribers.
type OrderPollJob struct {
	poller   Poller
	interval time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewOrderPollJob creates a poll job. A non-positive interval falls back to
// DefaultPollInterval. Each run is bounded by the interval so a slow store
// cannot stack polls.
func NewOrderPollJob(poller Poller, interval time.Duration, logger *slog.Logger) *OrderPollJob {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &OrderPollJob{
		poller:   poller,
		interval: interval,
		timeout:  interval,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "order_poll_job"),
	}
}

// Start schedules the poll.
func (j *OrderPollJob) Start() error {
	_, err := j.cron.AddFunc(fmt.Sprintf("@every %s", j.interval), j.run)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Order poll job started", "interval", j.interval.String())
	return nil
}

func (j *OrderPollJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.poller.Poll(ctx); err != nil {
		j.logger.WarnContext(ctx, "Order poll failed", "error", err)
	}
}

// Stop stops the order poll job and waits for a running poll to finish.
func (j *OrderPollJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Order poll job stopped")
}
