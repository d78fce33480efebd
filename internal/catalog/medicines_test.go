package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/store"
	"medstore/m/internal/store/memstore"
)

var now = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func request(name string, stock int64) domain.MedicineRequest {
	return domain.MedicineRequest{
		Name:        name,
		Brand:       "Cipla",
		Category:    "  pain   relief ",
		Stock:       stock,
		MinStock:    10,
		Price:       decimal.RequireFromString("4.50"),
		CostPrice:   decimal.RequireFromString("3.10"),
		BatchNumber: "PX-01",
		ExpiryDate:  "2027-06-30",
	}
}

func TestCreateMedicinePostsInitialStock(t *testing.T) {
	st := memstore.New()
	svc := NewService(st, nil, nil, ServiceConfig{Clock: clock})

	med, err := svc.CreateMedicine(context.Background(), request("Paracetamol", 40))
	require.NoError(t, err)
	assert.EqualValues(t, 40, med.Stock)
	assert.Equal(t, "Pain Relief", med.Category)
	assert.True(t, med.GSTPercentage.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, domain.StatusGood, med.Status)

	moves := st.Movements(med.ID)
	require.Len(t, moves, 1)
	assert.Equal(t, domain.MovementIn, moves[0].MovementType)
	assert.EqualValues(t, 40, moves[0].Quantity)
	assert.Equal(t, domain.RefInitial, moves[0].ReferenceType)
	assert.Equal(t, "Initial stock", moves[0].Reason)

	empty, err := svc.CreateMedicine(context.Background(), request("Ibuprofen", 0))
	require.NoError(t, err)
	assert.Empty(t, st.Movements(empty.ID))
	assert.Equal(t, domain.StatusLow, empty.Status)
}

func TestCreateMedicineValidation(t *testing.T) {
	svc := NewService(memstore.New(), nil, nil, ServiceConfig{Clock: clock})
	ctx := context.Background()

	req := request("", 1)
	_, err := svc.CreateMedicine(ctx, req)
	require.ErrorIs(t, err, domain.ErrMissingFields)

	req = request("X", 1)
	req.Price = decimal.Zero
	_, err = svc.CreateMedicine(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)

	req = request("X", 1)
	gst := decimal.NewFromInt(-1)
	req.GSTPercentage = &gst
	_, err = svc.CreateMedicine(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)

	req = request("X", -2)
	_, err = svc.CreateMedicine(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)

	req = request("X", 1)
	req.ExpiryDate = "30/06/2027"
	_, err = svc.CreateMedicine(ctx, req)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateMedicineCannotTouchStock(t *testing.T) {
	st := memstore.New()
	svc := NewService(st, nil, nil, ServiceConfig{Clock: clock})
	med, err := svc.CreateMedicine(context.Background(), request("Paracetamol", 40))
	require.NoError(t, err)

	price := decimal.RequireFromString("5.25")
	name := " Paracetamol 650 "
	updated, err := svc.UpdateMedicine(context.Background(), med.ID, domain.MedicinePatch{Price: &price, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 650", updated.Name)
	assert.True(t, updated.Price.Equal(price))
	assert.EqualValues(t, 40, updated.Stock)

	_, err = svc.UpdateMedicine(context.Background(), med.ID, domain.MedicinePatch{})
	require.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)

	blank := " "
	_, err = svc.UpdateMedicine(context.Background(), med.ID, domain.MedicinePatch{Brand: &blank})
	require.ErrorIs(t, err, domain.ErrValidation)

	zero := decimal.Zero
	_, err = svc.UpdateMedicine(context.Background(), med.ID, domain.MedicinePatch{CostPrice: &zero})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateMedicine(context.Background(), 999, domain.MedicinePatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrMedicineNotFound)

	stored, err := svc.GetMedicine(context.Background(), med.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(price))
}

func TestDeleteMedicineGuardsReferences(t *testing.T) {
	st := memstore.New()
	svc := NewService(st, nil, nil, ServiceConfig{Clock: clock})
	ctx := context.Background()
	used, err := svc.CreateMedicine(ctx, request("Used", 5))
	require.NoError(t, err)
	unused, err := svc.CreateMedicine(ctx, request("Unused", 5))
	require.NoError(t, err)

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sale := domain.Sale{BillNumber: "BILL0001", PaymentMethod: "cash"}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}
		return tx.InsertSaleItem(ctx, &domain.SaleItem{SaleID: sale.ID, MedicineID: used.ID, Quantity: 1})
	}))

	err = svc.DeleteMedicine(ctx, used.ID)
	require.ErrorIs(t, err, domain.ErrInUse)
	require.NoError(t, svc.DeleteMedicine(ctx, unused.ID))
	_, err = svc.GetMedicine(ctx, unused.ID)
	require.ErrorIs(t, err, domain.ErrMedicineNotFound)
	require.ErrorIs(t, svc.DeleteMedicine(ctx, unused.ID), domain.ErrMedicineNotFound)
}

func TestListMedicinesByStatus(t *testing.T) {
	svc := NewService(memstore.New(), nil, nil, ServiceConfig{Clock: clock})
	ctx := context.Background()

	_, err := svc.CreateMedicine(ctx, request("Low", 3))
	require.NoError(t, err)
	expiring := request("Expiring", 50)
	expiring.ExpiryDate = "2026-03-01"
	_, err = svc.CreateMedicine(ctx, expiring)
	require.NoError(t, err)
	_, err = svc.CreateMedicine(ctx, request("Good", 50))
	require.NoError(t, err)

	for status, want := range map[domain.StockStatus]string{
		domain.StatusLow:      "Low",
		domain.StatusExpiring: "Expiring",
		domain.StatusGood:     "Good",
	} {
		meds, err := svc.ListMedicines(ctx, domain.MedicineFilter{Status: status})
		require.NoError(t, err)
		require.Len(t, meds, 1, status)
		assert.Equal(t, want, meds[0].Name)
		assert.Equal(t, status, meds[0].Status)
	}

	meds, err := svc.ListMedicines(ctx, domain.MedicineFilter{Search: "exp", Category: "PAIN RELIEF"})
	require.NoError(t, err)
	require.Len(t, meds, 1)

	_, err = svc.ListMedicines(ctx, domain.MedicineFilter{Status: "bad"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMovements(t *testing.T) {
	svc := NewService(memstore.New(), nil, nil, ServiceConfig{Clock: clock})
	med, err := svc.CreateMedicine(context.Background(), request("Paracetamol", 40))
	require.NoError(t, err)

	moves, err := svc.Movements(context.Background(), med.ID, 0)
	require.NoError(t, err)
	require.Len(t, moves, 1)

	_, err = svc.Movements(context.Background(), 999, 0)
	require.ErrorIs(t, err, domain.ErrMedicineNotFound)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "Pain Relief", NormalizeCategory("pain relief"))
	assert.Equal(t, "Antibiotics", NormalizeCategory(" ANTIBIOTICS "))
	assert.Equal(t, "", NormalizeCategory("   "))
}
