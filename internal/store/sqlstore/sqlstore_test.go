package sqlstore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
	"medstore/m/internal/database"
	"medstore/m/internal/inventory"
	"medstore/m/internal/migrations"
	"medstore/m/internal/sales"
	"medstore/m/internal/store"
	"medstore/m/internal/store/sqlstore"
)

var testNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "medstore.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(db))
	return sqlstore.New(db)
}

func createMedicine(t *testing.T, st *sqlstore.Store, name string, stock int64) domain.Medicine {
	t.Helper()
	svc := catalog.NewService(st, inventory.NewLedger(clock), nil, catalog.ServiceConfig{Clock: clock})
	med, err := svc.CreateMedicine(context.Background(), domain.MedicineRequest{
		Name:        name,
		Brand:       "Generic",
		Category:    "analgesic",
		Stock:       stock,
		MinStock:    2,
		Price:       decimal.RequireFromString("10.00"),
		CostPrice:   decimal.RequireFromString("6.50"),
		BatchNumber: "B-7",
		ExpiryDate:  "2030-01-31",
	})
	require.NoError(t, err)
	return med
}

func createCustomer(t *testing.T, st *sqlstore.Store, phone string) int64 {
	t.Helper()
	c := domain.Customer{Name: "Asha", Phone: phone, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertCustomer(ctx, &c)
	}))
	return c.ID
}

func TestSaleLifecycleOnSQLite(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	med := createMedicine(t, st, "Paracetamol", 10)
	assert.Equal(t, "Analgesic", med.Category)
	customerID := createCustomer(t, st, "9000000001")

	svc := sales.NewService(st, inventory.NewLedger(clock), nil, sales.ServiceConfig{Clock: clock})
	sale, err := svc.CreateSale(ctx, domain.SaleRequest{
		CustomerID:    &customerID,
		Items:         []domain.SaleLineRequest{{MedicineID: med.ID, Quantity: 3}},
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, "BILL0001", sale.BillNumber)
	assert.Equal(t, "30.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, "3.60", sale.GSTAmount.StringFixed(2))
	assert.Equal(t, "33.60", sale.FinalAmount.StringFixed(2))

	stored, err := st.GetMedicine(ctx, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 7, stored.Stock)

	loaded, err := st.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Paracetamol", loaded.Items[0].MedicineName)
	assert.True(t, loaded.CreatedAt.Equal(testNow))

	summary, err := st.GetCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalOrders)
	assert.Equal(t, "33.60", summary.TotalPurchases.StringFixed(2))
	require.NotNil(t, summary.LastVisit)
	assert.True(t, summary.LastVisit.Equal(testNow))

	listed, err := svc.ListSales(ctx, sales.ListFilter{From: "2026-05-04", To: "2026-05-04"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.EqualValues(t, 1, listed[0].ItemCount)
	assert.Equal(t, "Asha", listed[0].CustomerName)

	listed, err = svc.ListSales(ctx, sales.ListFilter{From: "2026-05-05"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	stats, err := st.SalesStats(ctx, testNow.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalSales)
	assert.Equal(t, "33.60", stats.TotalRevenue.StringFixed(2))

	_, err = svc.CancelSale(ctx, sale.ID)
	require.NoError(t, err)

	stored, err = st.GetMedicine(ctx, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, stored.Stock)

	moves, err := st.ListMovements(ctx, med.ID, 10)
	require.NoError(t, err)
	require.Len(t, moves, 3)
	var sum int64
	for _, m := range moves {
		sum += m.Quantity
	}
	assert.EqualValues(t, 10, sum)

	_, err = svc.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestInsufficientStockLeavesNoTrace(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	med := createMedicine(t, st, "Ibuprofen", 2)

	svc := sales.NewService(st, inventory.NewLedger(clock), nil, sales.ServiceConfig{Clock: clock})
	_, err := svc.CreateSale(ctx, domain.SaleRequest{
		Items:         []domain.SaleLineRequest{{MedicineID: med.ID, Quantity: 5}},
		PaymentMethod: "card",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	stored, err := st.GetMedicine(ctx, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.Stock)
	listed, err := st.ListSales(ctx, domain.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestConcurrentSalesDoNotOversellOnSQLite(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	med := createMedicine(t, st, "Insulin", 5)
	svc := sales.NewService(st, inventory.NewLedger(clock), nil, sales.ServiceConfig{Clock: clock})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateSale(ctx, domain.SaleRequest{
				Items:         []domain.SaleLineRequest{{MedicineID: med.ID, Quantity: 5}},
				PaymentMethod: "cash",
			})
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		short++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)

	stored, err := st.GetMedicine(ctx, med.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Stock)
	listed, err := st.ListSales(ctx, domain.SaleFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	moves, err := st.ListMovements(ctx, med.ID, 10)
	require.NoError(t, err)
	var sum int64
	for _, m := range moves {
		sum += m.Quantity
	}
	assert.Len(t, moves, 2)
	assert.Zero(t, sum)
}

func TestDuplicatePhoneMapsToErrDuplicate(t *testing.T) {
	st := openStore(t)
	createCustomer(t, st, "9000000002")

	c := domain.Customer{Name: "Other", Phone: "9000000002", CreatedAt: testNow, UpdatedAt: testNow}
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.InsertCustomer(ctx, &c)
	})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestMaxSeriesNumber(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	insert := func(bill string) {
		s := domain.Sale{
			BillNumber:    bill,
			PaymentMethod: "cash",
			PaymentStatus: domain.PaymentPaid,
			CreatedAt:     testNow,
		}
		require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertSale(ctx, &s)
		}))
	}
	insert("BILL0009")
	insert("BILL0041")

	var n int64
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) (err error) {
		n, err = tx.MaxSeriesNumber(ctx, store.BillSeries)
		return err
	}))
	assert.EqualValues(t, 41, n)

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) (err error) {
		n, err = tx.MaxSeriesNumber(ctx, store.PrescriptionSeries)
		return err
	}))
	assert.Zero(t, n)
}

func TestListMedicinesStatusFilter(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	createMedicine(t, st, "Cetirizine", 1)
	createMedicine(t, st, "Amoxicillin", 50)

	low, err := st.ListMedicines(ctx, domain.MedicineFilter{Status: domain.StatusLow}, testNow)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Cetirizine", low[0].Name)

	all, err := st.ListMedicines(ctx, domain.MedicineFilter{Search: "cillin"}, testNow)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Amoxicillin", all[0].Name)
}
