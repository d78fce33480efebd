package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

// Handlers processes stock tasks.
type Handlers struct {
	reader   store.Reader
	enqueuer *Enqueuer
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

// HandlersConfig collects the handler dependencies.
type HandlersConfig struct {
	Reader   store.Reader
	Enqueuer *Enqueuer
	Logger   *slog.Logger
	Location *time.Location
	Clock    func() time.Time
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	h := &Handlers{reader: cfg.Reader, enqueuer: cfg.Enqueuer, logger: cfg.Logger, loc: cfg.Location, now: cfg.Clock}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// HandleLowStockAlert reports the medicine at warning level.
func (h *Handlers) HandleLowStockAlert(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode low stock payload: %v: %w", err, asynq.SkipRetry)
	}
	h.logger.Warn("low stock",
		slog.Int64("medicine_id", payload.MedicineID),
		slog.String("name", payload.Name),
		slog.Int64("stock", payload.Stock),
		slog.Int64("min_stock", payload.MinStock))
	return nil
}

// HandleStockScan reports expiring medicines and re-enqueues alerts for every
// medicine currently low on stock.
func (h *Handlers) HandleStockScan(ctx context.Context, t *asynq.Task) error {
	var payload StockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode stock scan payload: %v: %w", err, asynq.SkipRetry)
	}
	now := h.now().In(h.loc)
	low, err := h.reader.ListMedicines(ctx, domain.MedicineFilter{Status: domain.StatusLow}, now)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	expiring, err := h.reader.ListMedicines(ctx, domain.MedicineFilter{Status: domain.StatusExpiring}, now)
	if err != nil {
		return fmt.Errorf("list expiring: %w", err)
	}
	h.enqueuer.StockChanged(ctx, low)
	for _, med := range expiring {
		h.logger.Warn("medicine expiring",
			slog.Int64("medicine_id", med.ID),
			slog.String("name", med.Name),
			slog.String("expiry_date", med.ExpiryDate))
	}
	h.logger.Info("stock scan finished",
		slog.Int("low_stock", len(low)),
		slog.Int("expiring", len(expiring)))
	return nil
}
