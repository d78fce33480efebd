package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"medstore/m/domain"
)

// TaskEnqueuer is the subset of *asynq.Client used here.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer turns committed stock changes into low stock alert tasks.
type Enqueuer struct {
	client TaskEnqueuer
	logger *slog.Logger
}

func NewEnqueuer(client TaskEnqueuer, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, logger: logger}
}

// StockChanged enqueues an alert for each medicine at or below its minimum.
// Failures are logged; the stock change has already committed.
func (e *Enqueuer) StockChanged(ctx context.Context, medicines []domain.Medicine) {
	if e == nil || e.client == nil {
		return
	}
	for _, med := range medicines {
		if med.Stock > med.MinStock {
			continue
		}
		if err := e.enqueue(ctx, med); err != nil {
			e.logger.Warn("enqueue low stock alert",
				slog.Int64("medicine_id", med.ID), slog.Any("error", err))
		}
	}
}

func (e *Enqueuer) enqueue(ctx context.Context, med domain.Medicine) error {
	task, err := NewLowStockTask(med)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
