// Package catalog manages the medicine catalog. Stock levels are never
// written here directly; the initial quantity of a new medicine is posted
// through the stock ledger like any other movement.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
	"medstore/m/internal/store"
)

const initialStockReason = "Initial stock"

// Service is the medicine catalog manager.
type Service struct {
	store    store.Store
	ledger   *inventory.Ledger
	observer inventory.Observer
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Clock func() time.Time
}

// NewService builds Service.
func NewService(st store.Store, ledger *inventory.Ledger, observer inventory.Observer, cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if ledger == nil {
		ledger = inventory.NewLedger(clock)
	}
	return &Service{store: st, ledger: ledger, observer: observer, now: clock}
}

// CreateMedicine adds a catalog entry and posts its opening stock.
func (s *Service) CreateMedicine(ctx context.Context, req domain.MedicineRequest) (domain.Medicine, error) {
	med := domain.Medicine{
		Name:          strings.TrimSpace(req.Name),
		Brand:         strings.TrimSpace(req.Brand),
		Category:      NormalizeCategory(req.Category),
		MinStock:      req.MinStock,
		Price:         req.Price,
		CostPrice:     req.CostPrice,
		GSTPercentage: domain.DefaultGSTPercentage,
		BatchNumber:   strings.TrimSpace(req.BatchNumber),
		ExpiryDate:    strings.TrimSpace(req.ExpiryDate),
		Manufacturer:  strings.TrimSpace(req.Manufacturer),
		Composition:   strings.TrimSpace(req.Composition),
	}
	if req.GSTPercentage != nil {
		med.GSTPercentage = *req.GSTPercentage
	}
	if med.Name == "" || med.Brand == "" || med.Category == "" || med.BatchNumber == "" || med.ExpiryDate == "" {
		return domain.Medicine{}, domain.Errorf(domain.ErrMissingFields, "Missing required fields")
	}
	if err := validateMedicine(med); err != nil {
		return domain.Medicine{}, err
	}
	if req.Stock < 0 {
		return domain.Medicine{}, domain.Errorf(domain.ErrValidation, "Stock cannot be negative")
	}

	now := s.timestamp()
	med.CreatedAt, med.UpdatedAt = now, now
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		med.ID = 0
		med.Stock = 0
		if err := tx.InsertMedicine(ctx, &med); err != nil {
			return fmt.Errorf("insert medicine: %w", err)
		}
		if req.Stock == 0 {
			return nil
		}
		posted, err := s.ledger.Post(ctx, tx, inventory.Movement{
			MedicineID:    med.ID,
			Type:          domain.MovementIn,
			Delta:         req.Stock,
			Reason:        initialStockReason,
			ReferenceType: domain.RefInitial,
		})
		if err != nil {
			return err
		}
		med.Stock = posted.Stock
		return nil
	})
	if err != nil {
		return domain.Medicine{}, err
	}
	if s.observer != nil && med.Stock > 0 {
		s.observer.StockChanged(ctx, []domain.Medicine{med})
	}
	return med.WithStatus(s.now()), nil
}

// UpdateMedicine applies the fields present in patch.
func (s *Service) UpdateMedicine(ctx context.Context, id int64, patch domain.MedicinePatch) (domain.Medicine, error) {
	var updated domain.Medicine
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		med, err := s.ledger.Lock(ctx, tx, id)
		if err != nil {
			return err
		}
		changed, err := applyMedicinePatch(&med, patch)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return domain.Errorf(domain.ErrNoFieldsToUpdate, "No fields to update")
		}
		if err := validateMedicine(med); err != nil {
			return err
		}
		med.UpdatedAt = s.timestamp()
		if err := tx.UpdateMedicine(ctx, med); err != nil {
			return fmt.Errorf("update medicine: %w", err)
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
	return updated.WithStatus(s.now()), nil
}

// DeleteMedicine removes a medicine that no sale or prescription references.
func (s *Service) DeleteMedicine(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := s.ledger.Lock(ctx, tx, id); err != nil {
			return err
		}
		used, err := tx.MedicineReferenced(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return domain.Errorf(domain.ErrInUse, "Cannot delete medicine. It has been used in sales or prescriptions.")
		}
		return tx.DeleteMedicine(ctx, id)
	})
}

func (s *Service) GetMedicine(ctx context.Context, id int64) (domain.Medicine, error) {
	med, err := s.store.GetMedicine(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Medicine{}, domain.Errorf(domain.ErrMedicineNotFound, "Medicine not found")
		}
		return domain.Medicine{}, err
	}
	return med.WithStatus(s.now()), nil
}

func (s *Service) ListMedicines(ctx context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error) {
	switch filter.Status {
	case "", domain.StatusLow, domain.StatusExpiring, domain.StatusGood:
	default:
		return nil, domain.Errorf(domain.ErrValidation, "Invalid status %q", filter.Status)
	}
	now := s.now()
	meds, err := s.store.ListMedicines(ctx, filter, now)
	if err != nil {
		return nil, err
	}
	for i := range meds {
		meds[i] = meds[i].WithStatus(now)
	}
	return meds, nil
}

// Movements returns the latest ledger rows for a medicine, newest first.
func (s *Service) Movements(ctx context.Context, id int64, limit int) ([]domain.StockMovement, error) {
	if _, err := s.GetMedicine(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListMovements(ctx, id, limit)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// NormalizeCategory trims a category and title-cases it so filters group
// "pain relief" and "Pain Relief" together.
func NormalizeCategory(category string) string {
	category = strings.Join(strings.Fields(category), " ")
	if category == "" {
		return ""
	}
	return cases.Title(language.English).String(category)
}

func validateMedicine(m domain.Medicine) error {
	if !m.Price.IsPositive() || !m.CostPrice.IsPositive() {
		return domain.Errorf(domain.ErrValidation, "Price and cost price must be greater than zero")
	}
	if m.GSTPercentage.IsNegative() || m.GSTPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Errorf(domain.ErrValidation, "GST percentage must be between 0 and 100")
	}
	if m.MinStock < 0 {
		return domain.Errorf(domain.ErrValidation, "Minimum stock cannot be negative")
	}
	if _, err := time.Parse(domain.DateLayout, m.ExpiryDate); err != nil {
		return domain.Errorf(domain.ErrValidation, "Expiry date must be YYYY-MM-DD")
	}
	return nil
}
