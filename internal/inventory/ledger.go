// Package inventory owns every change to medicine stock. Stock only moves
// through the Ledger, which pairs each stock update with one movement row in
// the same transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

// Movement describes one ledger posting.
type Movement struct {
	MedicineID    int64
	Type          domain.MovementType
	Delta         int64
	Reason        string
	ReferenceType string
	ReferenceID   *int64
}

// Ledger applies stock deltas under the medicine row lock.
type Ledger struct {
	now func() time.Time
}

// NewLedger builds a Ledger. A nil clock means time.Now.
func NewLedger(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{now: clock}
}

// Lock reads the medicine and holds its row lock until the transaction ends.
func (l *Ledger) Lock(ctx context.Context, tx store.LedgerTx, medicineID int64) (domain.Medicine, error) {
	med, err := tx.MedicineForUpdate(ctx, medicineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Medicine{}, domain.Errorf(domain.ErrMedicineNotFound, "Medicine with ID %d not found", medicineID)
		}
		return domain.Medicine{}, fmt.Errorf("lock medicine %d: %w", medicineID, err)
	}
	return med, nil
}

// ApplyDelta locks the medicine, checks the resulting level and persists it.
// The caller records the matching movement; Post does both.
func (l *Ledger) ApplyDelta(ctx context.Context, tx store.LedgerTx, medicineID, delta int64) (domain.Medicine, error) {
	med, err := l.Lock(ctx, tx, medicineID)
	if err != nil {
		return domain.Medicine{}, err
	}
	next := med.Stock + delta
	if next < 0 {
		return domain.Medicine{}, domain.InsufficientStock(med.Name, med.Stock, -delta)
	}
	at := l.timestamp()
	if err := tx.SetMedicineStock(ctx, medicineID, next, at); err != nil {
		return domain.Medicine{}, fmt.Errorf("update stock for medicine %d: %w", medicineID, err)
	}
	med.Stock = next
	med.UpdatedAt = at
	return med, nil
}

// RecordMovement appends a ledger row and returns its id.
func (l *Ledger) RecordMovement(ctx context.Context, tx store.LedgerTx, m Movement) (int64, error) {
	if !m.Type.Valid() {
		return 0, domain.Errorf(domain.ErrInvalidMovementType, "Invalid movement type %q", m.Type)
	}
	row := domain.StockMovement{
		MedicineID:    m.MedicineID,
		MovementType:  m.Type,
		Quantity:      m.Delta,
		Reason:        m.Reason,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		CreatedAt:     l.timestamp(),
	}
	if err := tx.InsertMovement(ctx, &row); err != nil {
		return 0, fmt.Errorf("record movement for medicine %d: %w", m.MedicineID, err)
	}
	return row.ID, nil
}

// Post applies m.Delta and records m in one step.
func (l *Ledger) Post(ctx context.Context, tx store.LedgerTx, m Movement) (domain.Medicine, error) {
	med, err := l.ApplyDelta(ctx, tx, m.MedicineID, m.Delta)
	if err != nil {
		return domain.Medicine{}, err
	}
	if _, err := l.RecordMovement(ctx, tx, m); err != nil {
		return domain.Medicine{}, err
	}
	return med, nil
}

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}
