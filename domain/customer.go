package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"`
	Email       string    `db:"email" json:"email"`
	Address     string    `db:"address" json:"address"`
	DateOfBirth string    `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CustomerSummary adds purchase history aggregates to a customer.
type CustomerSummary struct {
	Customer
	TotalOrders    int64           `db:"total_orders" json:"total_orders"`
	TotalPurchases decimal.Decimal `db:"total_purchases" json:"total_purchases"`
	LastVisit      *time.Time      `db:"last_visit" json:"last_visit"`
	RecentSales    []SaleSummary   `db:"-" json:"recent_sales,omitempty"`
}

type CustomerPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Phone       *string `json:"phone" validate:"omitempty,min=5"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Address     *string `json:"address"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender"`
}

type CustomerRequest struct {
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required,min=5"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender"`
}
