package domain

import "time"

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// Reference types recorded on stock movements.
const (
	RefInitial    = "initial"
	RefManual     = "manual"
	RefSale       = "sale"
	RefSaleCancel = "sale_cancel"
)

// StockMovement is one append-only ledger row. Quantity is the signed delta
// applied to the medicine's stock.
type StockMovement struct {
	ID            int64        `db:"id" json:"id"`
	MedicineID    int64        `db:"medicine_id" json:"medicine_id"`
	MovementType  MovementType `db:"movement_type" json:"movement_type"`
	Quantity      int64        `db:"quantity" json:"quantity"`
	Reason        string       `db:"reason" json:"reason"`
	ReferenceType string       `db:"reference_type" json:"reference_type"`
	ReferenceID   *int64       `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}
