package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the derived, non-persisted classification of a medicine.
type StockStatus string

const (
	StatusLow      StockStatus = "low"
	StatusExpiring StockStatus = "expiring"
	StatusGood     StockStatus = "good"
)

// ExpiryWarningMonths is how far ahead an expiry date marks a medicine as expiring.
const ExpiryWarningMonths = 3

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type Medicine struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Brand         string          `db:"brand" json:"brand"`
	Category      string          `db:"category" json:"category"`
	Stock         int64           `db:"stock" json:"stock"`
	MinStock      int64           `db:"min_stock" json:"min_stock"`
	Price         decimal.Decimal `db:"price" json:"price"`
	CostPrice     decimal.Decimal `db:"cost_price" json:"cost_price"`
	GSTPercentage decimal.Decimal `db:"gst_percentage" json:"gst_percentage"`
	BatchNumber   string          `db:"batch_number" json:"batch_number"`
	ExpiryDate    string          `db:"expiry_date" json:"expiry_date"`
	Manufacturer  string          `db:"manufacturer" json:"manufacturer"`
	Composition   string          `db:"composition" json:"composition"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	Status        StockStatus     `db:"-" json:"status"`
}

// ClassifyStock derives the status of a medicine as of now.
func ClassifyStock(m Medicine, now time.Time) StockStatus {
	if m.Stock <= m.MinStock {
		return StatusLow
	}
	if expiry, err := time.ParseInLocation(DateLayout, m.ExpiryDate, now.Location()); err == nil {
		if !expiry.After(ExpiryCutoff(now)) {
			return StatusExpiring
		}
	}
	return StatusGood
}

// ExpiryCutoff is the last expiry date still considered "expiring" as of now.
func ExpiryCutoff(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, ExpiryWarningMonths, 0)
}

// WithStatus returns a copy of m with Status filled in.
func (m Medicine) WithStatus(now time.Time) Medicine {
	m.Status = ClassifyStock(m, now)
	return m
}

// MedicineFilter narrows medicine listings.
type MedicineFilter struct {
	Search   string
	Category string
	Status   StockStatus
}

// MedicinePatch lists the catalog fields a caller may change after creation.
// Stock is deliberately absent: it only moves through the stock ledger.
type MedicinePatch struct {
	Name          *string          `json:"name" validate:"omitempty,min=1"`
	Brand         *string          `json:"brand" validate:"omitempty,min=1"`
	Category      *string          `json:"category" validate:"omitempty,min=1"`
	MinStock      *int64           `json:"min_stock" validate:"omitempty,gte=0"`
	Price         *decimal.Decimal `json:"price"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	GSTPercentage *decimal.Decimal `json:"gst_percentage"`
	BatchNumber   *string          `json:"batch_number" validate:"omitempty,min=1"`
	ExpiryDate    *string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Manufacturer  *string          `json:"manufacturer"`
	Composition   *string          `json:"composition"`
}

// MedicineRequest creates a catalog entry. A nil GSTPercentage takes the
// default rate.
type MedicineRequest struct {
	Name          string           `json:"name" validate:"required"`
	Brand         string           `json:"brand" validate:"required"`
	Category      string           `json:"category" validate:"required"`
	Stock         int64            `json:"stock" validate:"gte=0"`
	MinStock      int64            `json:"min_stock" validate:"gte=0"`
	Price         decimal.Decimal  `json:"price"`
	CostPrice     decimal.Decimal  `json:"cost_price"`
	GSTPercentage *decimal.Decimal `json:"gst_percentage"`
	BatchNumber   string           `json:"batch_number" validate:"required"`
	ExpiryDate    string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Manufacturer  string           `json:"manufacturer"`
	Composition   string           `json:"composition"`
}

// DefaultGSTPercentage applies when a medicine is created without a rate.
var DefaultGSTPercentage = decimal.NewFromInt(12)
