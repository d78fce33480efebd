// Package store declares the persistence ports used by the managers. The
// sqlstore package implements them on sqlx; memstore implements them in memory
// for tests.
package store

import (
	"context"
	"errors"
	"time"

	"medstore/m/domain"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict indicates a transient concurrency failure; the transaction may be retried.
	ErrConflict = errors.New("store: transaction conflict")
)

// Store is the storage handle threaded through every manager.
type Store interface {
	Reader
	// WithTx runs fn in one transaction. The transaction commits only if fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Reader groups non-locking reads used by list and detail endpoints.
type Reader interface {
	GetMedicine(ctx context.Context, id int64) (domain.Medicine, error)
	ListMedicines(ctx context.Context, filter domain.MedicineFilter, now time.Time) ([]domain.Medicine, error)
	ListMovements(ctx context.Context, medicineID int64, limit int) ([]domain.StockMovement, error)

	GetSale(ctx context.Context, id int64) (domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleSummary, error)

	GetCustomer(ctx context.Context, id int64) (domain.CustomerSummary, error)
	ListCustomers(ctx context.Context, search string) ([]domain.CustomerSummary, error)

	GetPrescription(ctx context.Context, id int64) (domain.Prescription, error)
	ListPrescriptions(ctx context.Context, filter domain.PrescriptionFilter) ([]domain.PrescriptionSummary, error)
}

// Tx is the transactional view of the store. Every *ForUpdate read holds a row
// lock until the transaction ends.
type Tx interface {
	LedgerTx
	SeriesTx
	SaleTx
	CatalogTx
	CustomerTx
	PrescriptionTx
}

// LedgerTx is the stock ledger's slice of a transaction.
type LedgerTx interface {
	MedicineForUpdate(ctx context.Context, id int64) (domain.Medicine, error)
	SetMedicineStock(ctx context.Context, id, stock int64, at time.Time) error
	InsertMovement(ctx context.Context, m *domain.StockMovement) error
}

// SeriesTx exposes the largest numeric suffix of an identifier series.
type SeriesTx interface {
	MaxSeriesNumber(ctx context.Context, series Series) (int64, error)
}

type SaleTx interface {
	InsertSale(ctx context.Context, s *domain.Sale) error
	InsertSaleItem(ctx context.Context, item *domain.SaleItem) error
	SaleForUpdate(ctx context.Context, id int64) (domain.Sale, error)
	SaleItems(ctx context.Context, saleID int64) ([]domain.SaleItem, error)
	UpdateSale(ctx context.Context, s domain.Sale) error
	DeleteSaleItems(ctx context.Context, saleID int64) error
	DeleteSale(ctx context.Context, id int64) error
}

type CatalogTx interface {
	InsertMedicine(ctx context.Context, m *domain.Medicine) error
	UpdateMedicine(ctx context.Context, m domain.Medicine) error
	DeleteMedicine(ctx context.Context, id int64) error
	MedicineReferenced(ctx context.Context, id int64) (bool, error)
}

type CustomerTx interface {
	CustomerForUpdate(ctx context.Context, id int64) (domain.Customer, error)
	CustomerIDByPhone(ctx context.Context, phone string) (int64, error)
	InsertCustomer(ctx context.Context, c *domain.Customer) error
	UpdateCustomer(ctx context.Context, c domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	CustomerReferenced(ctx context.Context, id int64) (bool, error)
}

type PrescriptionTx interface {
	PrescriptionForUpdate(ctx context.Context, id int64) (domain.Prescription, error)
	InsertPrescription(ctx context.Context, p *domain.Prescription) error
	InsertPrescriptionItem(ctx context.Context, item *domain.PrescriptionItem) error
	UpdatePrescription(ctx context.Context, p domain.Prescription) error
}

// Series identifies a sequential identifier column, e.g. sales.bill_number.
type Series struct {
	Prefix string
	Table  string
	Column string
	// Width is the zero-padded width of the numeric suffix.
	Width int
	// MaxWidth bounds how far the suffix may grow past Width.
	MaxWidth int
}

var (
	BillSeries         = Series{Prefix: "BILL", Table: "sales", Column: "bill_number", Width: 4, MaxWidth: 9}
	PrescriptionSeries = Series{Prefix: "PRESC", Table: "prescriptions", Column: "prescription_number", Width: 4, MaxWidth: 9}
)
