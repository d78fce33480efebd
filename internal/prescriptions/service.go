// Package prescriptions records customer prescriptions. Numbers come from the
// PRESC series, allocated in the inserting transaction.
package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/sequence"
	"medstore/m/internal/store"
)

type Service struct {
	store    store.Store
	now      func() time.Time
	attempts int
}

func NewService(st store.Store, clock func() time.Time, retryAttempts int) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: st, now: clock, attempts: retryAttempts}
}

func (s *Service) Create(ctx context.Context, req domain.PrescriptionRequest) (domain.Prescription, error) {
	if req.CustomerID <= 0 {
		return domain.Prescription{}, domain.Errorf(domain.ErrMissingFields, "Customer ID is required")
	}
	date := strings.TrimSpace(req.PrescriptionDate)
	if date == "" {
		date = s.now().Format(domain.DateLayout)
	} else if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Prescription{}, domain.Errorf(domain.ErrValidation, "Prescription date must be YYYY-MM-DD")
	}
	for _, item := range req.Items {
		if item.MedicineID <= 0 || item.Quantity < 0 {
			return domain.Prescription{}, domain.Errorf(domain.ErrInvalidItem, "Invalid item data")
		}
	}

	var p domain.Prescription
	err := store.WithRetry(ctx, s.store, s.attempts, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.CustomerForUpdate(ctx, req.CustomerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Errorf(domain.ErrCustomerNotFound, "Customer not found")
			}
			return err
		}
		number, err := sequence.Next(ctx, tx, store.PrescriptionSeries)
		if err != nil {
			return err
		}
		now := s.timestamp()
		p = domain.Prescription{
			CustomerID:         req.CustomerID,
			PrescriptionNumber: number,
			DoctorName:         strings.TrimSpace(req.DoctorName),
			PrescriptionDate:   date,
			FileURL:            strings.TrimSpace(req.FileURL),
			Status:             domain.PrescriptionPending,
			Notes:              req.Notes,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.InsertPrescription(ctx, &p); err != nil {
			return fmt.Errorf("insert prescription: %w", err)
		}
		for _, line := range req.Items {
			med, err := tx.MedicineForUpdate(ctx, line.MedicineID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.Errorf(domain.ErrMedicineNotFound, "Medicine with ID %d not found", line.MedicineID)
				}
				return err
			}
			item := domain.PrescriptionItem{
				PrescriptionID: p.ID,
				MedicineID:     line.MedicineID,
				MedicineName:   med.Name,
				Quantity:       line.Quantity,
				Dosage:         strings.TrimSpace(line.Dosage),
				Status:         domain.PrescriptionPending,
			}
			if err := tx.InsertPrescriptionItem(ctx, &item); err != nil {
				return fmt.Errorf("insert prescription item: %w", err)
			}
			p.Items = append(p.Items, item)
		}
		return nil
	})
	if err != nil {
		return domain.Prescription{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch domain.PrescriptionPatch) (domain.Prescription, error) {
	if patch.DoctorName == nil && patch.Status == nil && patch.Notes == nil {
		return domain.Prescription{}, domain.Errorf(domain.ErrNoFieldsToUpdate, "No fields to update")
	}
	if patch.Status != nil && !validStatus(*patch.Status) {
		return domain.Prescription{}, domain.Errorf(domain.ErrValidation, "Invalid status %q", *patch.Status)
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.PrescriptionForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Errorf(domain.ErrPrescriptionNotFound, "Prescription not found")
			}
			return err
		}
		if patch.DoctorName != nil {
			p.DoctorName = strings.TrimSpace(*patch.DoctorName)
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		p.UpdatedAt = s.timestamp()
		return tx.UpdatePrescription(ctx, p)
	})
	if err != nil {
		return domain.Prescription{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Prescription, error) {
	p, err := s.store.GetPrescription(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Prescription{}, domain.Errorf(domain.ErrPrescriptionNotFound, "Prescription not found")
	}
	return p, err
}

func (s *Service) List(ctx context.Context, filter domain.PrescriptionFilter) ([]domain.PrescriptionSummary, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, domain.Errorf(domain.ErrValidation, "Invalid status %q", filter.Status)
	}
	return s.store.ListPrescriptions(ctx, filter)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func validStatus(status string) bool {
	switch status {
	case domain.PrescriptionPending, domain.PrescriptionProcessing, domain.PrescriptionFulfilled:
		return true
	}
	return false
}
