package inventory

import (
	"context"
	"strings"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

// AdjustInput is a manual stock correction. Quantity is a count for in/out
// and the new absolute level for adjustment.
type AdjustInput struct {
	MedicineID   int64
	MovementType domain.MovementType
	Quantity     int64
	Reason       string
}

// Service handles direct stock corrections outside of sales.
type Service struct {
	store    store.Store
	ledger   *Ledger
	observer Observer
	attempts int
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	RetryAttempts int
}

// NewService builds Service.
func NewService(st store.Store, ledger *Ledger, observer Observer, cfg ServiceConfig) *Service {
	if ledger == nil {
		ledger = NewLedger(nil)
	}
	return &Service{store: st, ledger: ledger, observer: observer, attempts: cfg.RetryAttempts}
}

// AdjustStock posts a manual movement and returns the updated medicine with
// its derived status.
func (s *Service) AdjustStock(ctx context.Context, in AdjustInput) (domain.Medicine, error) {
	reason := strings.TrimSpace(in.Reason)
	if in.MedicineID <= 0 || in.MovementType == "" || reason == "" {
		return domain.Medicine{}, domain.Errorf(domain.ErrMissingFields, "Missing required fields")
	}
	if !in.MovementType.Valid() {
		return domain.Medicine{}, domain.Errorf(domain.ErrInvalidMovementType, "Invalid movement type %q", in.MovementType)
	}
	if in.MovementType == domain.MovementAdjustment && in.Quantity < 0 {
		return domain.Medicine{}, domain.Errorf(domain.ErrValidation, "Stock level cannot be negative")
	}

	var updated domain.Medicine
	err := store.WithRetry(ctx, s.store, s.attempts, func(ctx context.Context, tx store.Tx) error {
		delta := abs(in.Quantity)
		switch in.MovementType {
		case domain.MovementOut:
			delta = -delta
		case domain.MovementAdjustment:
			current, err := s.ledger.Lock(ctx, tx, in.MedicineID)
			if err != nil {
				return err
			}
			delta = in.Quantity - current.Stock
		}
		med, err := s.ledger.Post(ctx, tx, Movement{
			MedicineID:    in.MedicineID,
			Type:          in.MovementType,
			Delta:         delta,
			Reason:        reason,
			ReferenceType: domain.RefManual,
		})
		if err != nil {
			return err
		}
		updated = med
		return nil
	})
	if err != nil {
		return domain.Medicine{}, err
	}
	if s.observer != nil {
		s.observer.StockChanged(ctx, []domain.Medicine{updated})
	}
	return updated.WithStatus(s.ledger.now()), nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
