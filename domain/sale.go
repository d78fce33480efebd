package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. Sales are recorded as paid unless the caller says otherwise.
const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
	PaymentPartial = "partial"
)

type Sale struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     *int64          `db:"customer_id" json:"customer_id,omitempty"`
	BillNumber     string          `db:"bill_number" json:"bill_number"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	GSTAmount      decimal.Decimal `db:"gst_amount" json:"gst_amount"`
	FinalAmount    decimal.Decimal `db:"final_amount" json:"final_amount"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	PaymentStatus  string          `db:"payment_status" json:"payment_status"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	Items          []SaleItem      `db:"-" json:"items,omitempty"`
}

type SaleItem struct {
	ID           int64           `db:"id" json:"id"`
	SaleID       int64           `db:"sale_id" json:"sale_id"`
	MedicineID   int64           `db:"medicine_id" json:"medicine_id"`
	MedicineName string          `db:"medicine_name" json:"medicine_name,omitempty"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"total_price"`
	GSTAmount    decimal.Decimal `db:"gst_amount" json:"gst_amount"`
}

// SaleSummary is the list view of a sale.
type SaleSummary struct {
	ID            int64           `db:"id" json:"id"`
	BillNumber    string          `db:"bill_number" json:"bill_number"`
	FinalAmount   decimal.Decimal `db:"final_amount" json:"final_amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	CustomerPhone string          `db:"customer_phone" json:"customer_phone"`
	ItemCount     int64           `db:"item_count" json:"item_count"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// SaleFilter narrows sale listings. Dates are inclusive calendar days.
type SaleFilter struct {
	Search        string
	From          time.Time
	To            time.Time
	PaymentMethod string
	CustomerID    int64
	Limit         int
}

// SaleLineRequest is one requested medicine-quantity pair.
type SaleLineRequest struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

// SaleRequest is the input to sale creation.
type SaleRequest struct {
	CustomerID     *int64            `json:"customer_id"`
	Items          []SaleLineRequest `json:"items"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	PaymentMethod  string            `json:"payment_method"`
	PaymentStatus  string            `json:"payment_status" validate:"omitempty,oneof=paid pending partial"`
	Notes          string            `json:"notes"`
}

// SalePatch holds the only fields a sale may change after creation.
type SalePatch struct {
	PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=paid pending partial"`
	Notes         *string `json:"notes"`
}
