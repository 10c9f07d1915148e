package printers

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cafe/internal/core/domain/model/kernel"
	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"
	"cafe/internal/pkg/errs"
)

// ManualJob is a rendered ticket waiting for staff to print it by hand from
// the dashboard.
type ManualJob struct {
	ID          ports.JobID
	MerchantID  kernel.UUID
	OrderID     kernel.UUID
	OrderNumber string
	Kind        printing.TicketKind
	Text        string
	QueuedAt    time.Time
}

// ManualQueue holds manual jobs until a staff member confirms them.
type ManualQueue struct {
	mu   sync.Mutex
	jobs map[ports.JobID]ManualJob
	now  func() time.Time
}

func NewManualQueue() *ManualQueue {
	return &ManualQueue{jobs: make(map[ports.JobID]ManualJob), now: time.Now}
}

func (q *ManualQueue) enqueue(ticket printing.Ticket) ManualJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := ManualJob{
		ID:          newJobID("manual"),
		MerchantID:  ticket.MerchantID,
		OrderID:     ticket.OrderID,
		OrderNumber: ticket.OrderNumber,
		Kind:        ticket.Kind,
		Text:        ticket.Text(),
		QueuedAt:    q.now(),
	}
	q.jobs[job.ID] = job
	return job
}

// Pending lists the merchant's unconfirmed jobs, oldest first.
func (q *ManualQueue) Pending(merchantID kernel.UUID) []ManualJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]ManualJob, 0)
	for _, job := range q.jobs {
		if job.MerchantID.IsEqual(merchantID) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}

// Confirm removes a printed job. Unknown ids return *errs.ObjectNotFoundError.
func (q *ManualQueue) Confirm(id ports.JobID) (ManualJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return ManualJob{}, errs.NewObjectNotFoundError("manual print job", string(id))
	}
	delete(q.jobs, id)
	return job, nil
}

func (q *ManualQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// ManualTransport hands tickets to staff through a ManualQueue. It succeeds
// unless ctx is already done.
type ManualTransport struct {
	queue  *ManualQueue
	logger *slog.Logger
}

func NewManualTransport(queue *ManualQueue, logger *slog.Logger) *ManualTransport {
	return &ManualTransport{queue: queue, logger: logger.With("component", "manual_print")}
}

func (t *ManualTransport) Kind() printing.TransportKind { return printing.ManualFallback }

func (t *ManualTransport) Send(ctx context.Context, printer printing.PrinterConfig, ticket printing.Ticket) (ports.JobID, error) {
	if err := ctx.Err(); err != nil {
		return "", transportError(printer, err)
	}

	job := t.queue.enqueue(ticket)
	t.logger.InfoContext(ctx, "ticket queued for manual printing",
		"job_id", string(job.ID),
		"merchant_id", job.MerchantID.String(),
		"ticket", ticket.Title(),
	)
	return job.ID, nil
}
