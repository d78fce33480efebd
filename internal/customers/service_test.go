package customers

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

func clock() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }

func TestCreateEnforcesUniquePhone(t *testing.T) {
	svc := NewService(memstore.New(), clock)
	ctx := context.Background()

	c, err := svc.Create(ctx, domain.CustomerRequest{Name: " Asha ", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "Asha", c.Name)
	assert.NotZero(t, c.ID)

	_, err = svc.Create(ctx, domain.CustomerRequest{Name: "Other", Phone: "9876543210"})
	require.ErrorIs(t, err, domain.ErrDuplicatePhone)

	_, err = svc.Create(ctx, domain.CustomerRequest{Name: "NoPhone"})
	require.ErrorIs(t, err, domain.ErrMissingFields)
}

func TestUpdate(t *testing.T) {
	svc := NewService(memstore.New(), clock)
	ctx := context.Background()
	a, err := svc.Create(ctx, domain.CustomerRequest{Name: "A", Phone: "11111"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, domain.CustomerRequest{Name: "B", Phone: "22222"})
	require.NoError(t, err)

	email := "b@example.com"
	updated, err := svc.Update(ctx, b.ID, domain.CustomerPatch{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "22222", updated.Phone)

	taken := a.Phone
	_, err = svc.Update(ctx, b.ID, domain.CustomerPatch{Phone: &taken})
	require.ErrorIs(t, err, domain.ErrDuplicatePhone)

	same := b.Phone
	_, err = svc.Update(ctx, b.ID, domain.CustomerPatch{Phone: &same})
	require.NoError(t, err)

	_, err = svc.Update(ctx, b.ID, domain.CustomerPatch{})
	require.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)

	_, err = svc.Update(ctx, 999, domain.CustomerPatch{Email: &email})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestDeleteAndHistory(t *testing.T) {
	st := memstore.New()
	svc := NewService(st, clock)
	ctx := context.Background()
	buyer, err := svc.Create(ctx, domain.CustomerRequest{Name: "Buyer", Phone: "33333"})
	require.NoError(t, err)
	idle, err := svc.Create(ctx, domain.CustomerRequest{Name: "Idle", Phone: "44444"})
	require.NoError(t, err)

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i, amount := range []string{"112.00", "40.50"} {
			sale := domain.Sale{
				CustomerID:    &buyer.ID,
				BillNumber:    []string{"BILL0001", "BILL0002"}[i],
				FinalAmount:   decimal.RequireFromString(amount),
				PaymentMethod: "cash",
				CreatedAt:     clock().Add(time.Duration(i) * time.Hour),
			}
			if err := tx.InsertSale(ctx, &sale); err != nil {
				return err
			}
		}
		return nil
	}))

	summary, err := svc.Get(ctx, buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalOrders)
	assert.Equal(t, "152.50", summary.TotalPurchases.StringFixed(2))
	require.NotNil(t, summary.LastVisit)
	assert.Equal(t, clock().Add(time.Hour), *summary.LastVisit)
	require.Len(t, summary.RecentSales, 2)
	assert.Equal(t, "BILL0002", summary.RecentSales[0].BillNumber)

	require.ErrorIs(t, svc.Delete(ctx, buyer.ID), domain.ErrInUse)
	require.NoError(t, svc.Delete(ctx, idle.ID))
	_, err = svc.Get(ctx, idle.ID)
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	list, err := svc.List(ctx, "buy")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buyer", list[0].Name)
}
