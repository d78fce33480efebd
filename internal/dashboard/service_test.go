package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
)

var now = time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)

type mockRepo struct {
	salesCalls atomic.Int64
	since      time.Time
	cutoff     string
	points     []SalePoint
	err        error
}

func (m *mockRepo) SalesStats(_ context.Context, since time.Time) (SalesStats, error) {
	m.salesCalls.Add(1)
	m.since = since
	return SalesStats{TotalSales: 3, TotalRevenue: decimal.RequireFromString("100"), TotalGST: decimal.RequireFromString("10.71")}, m.err
}

func (m *mockRepo) InventoryStats(_ context.Context, cutoff string) (InventoryStats, error) {
	m.cutoff = cutoff
	return InventoryStats{TotalMedicines: 4, LowStockCount: 1}, nil
}

func (m *mockRepo) CustomerStats(context.Context, time.Time) (CustomerStats, error) {
	return CustomerStats{ActiveCustomers: 2, TotalCustomers: 9}, nil
}

func (m *mockRepo) PrescriptionStats(context.Context, time.Time) (PrescriptionStats, error) {
	return PrescriptionStats{TotalPrescriptions: 1, PendingPrescriptions: 1}, nil
}

func (m *mockRepo) TopMedicines(context.Context, time.Time, int) ([]TopMedicine, error) {
	return []TopMedicine{{Name: "Paracetamol", TotalSold: 12, TotalRevenue: decimal.NewFromInt(60)}}, nil
}

func (m *mockRepo) SalesSince(context.Context, time.Time) ([]SalePoint, error) {
	return m.points, nil
}

func (m *mockRepo) CategorySales(context.Context, time.Time) ([]CategorySales, error) {
	return nil, nil
}

func (m *mockRepo) PaymentMethods(context.Context, time.Time) ([]PaymentMethodStats, error) {
	return []PaymentMethodStats{{PaymentMethod: "cash", TransactionCount: 3, TotalAmount: decimal.NewFromInt(100)}}, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute, nil)
	return NewService(repo, cache, time.UTC, func() time.Time { return now }), cache
}

func TestReportCachesUntilBump(t *testing.T) {
	repo := &mockRepo{}
	svc, cache := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Report(ctx, PeriodToday)
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Sales.TotalSales)
	assert.Equal(t, "33.33", first.Sales.AvgOrderValue.StringFixed(2))
	assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), repo.since)
	assert.Equal(t, "2026-09-10", repo.cutoff)
	assert.NotNil(t, first.CategorySales)

	second, err := svc.Report(ctx, PeriodToday)
	require.NoError(t, err)
	assert.EqualValues(t, 1, repo.salesCalls.Load())
	assert.Equal(t, first.Customers, second.Customers)
	assert.True(t, first.Sales.TotalRevenue.Equal(second.Sales.TotalRevenue))

	cache.StockChanged(ctx, []domain.Medicine{{ID: 1}})
	_, err = svc.Report(ctx, PeriodToday)
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.salesCalls.Load())

	_, err = svc.Report(ctx, PeriodWeek)
	require.NoError(t, err)
	assert.EqualValues(t, 3, repo.salesCalls.Load())
	assert.Equal(t, time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), repo.since)
}

func TestReportWithoutCache(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil, time.UTC, func() time.Time { return now })

	_, err := svc.Report(context.Background(), PeriodMonth)
	require.NoError(t, err)
	_, err = svc.Report(context.Background(), PeriodMonth)
	require.NoError(t, err)
	assert.EqualValues(t, 2, repo.salesCalls.Load())
}

func TestReportPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc, _ := newTestService(t, &mockRepo{err: boom})
	_, err := svc.Report(context.Background(), PeriodToday)
	require.ErrorIs(t, err, boom)
}

func TestBucketTrend(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	points := []SalePoint{
		{CreatedAt: time.Date(2026, 6, 10, 10, 0, 0, 0, time.UTC), FinalAmount: decimal.RequireFromString("10.50")},
		{CreatedAt: time.Date(2026, 6, 9, 20, 0, 0, 0, time.UTC), FinalAmount: decimal.RequireFromString("5")},
		{CreatedAt: time.Date(2026, 6, 9, 12, 0, 0, 0, time.UTC), FinalAmount: decimal.RequireFromString("7")},
		{CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), FinalAmount: decimal.RequireFromString("99")},
	}
	trend := BucketTrend(points, now, ist)
	require.Len(t, trend, TrendDays)
	assert.Equal(t, "2026-06-10", trend[0].Date)
	// 20:00 UTC on the 9th is already the 10th in IST.
	assert.EqualValues(t, 2, trend[0].SalesCount)
	assert.Equal(t, "15.50", trend[0].DailyRevenue.StringFixed(2))
	assert.Equal(t, "2026-06-09", trend[1].Date)
	assert.EqualValues(t, 1, trend[1].SalesCount)
	assert.Equal(t, "2026-06-04", trend[6].Date)
	assert.Zero(t, trend[6].SalesCount)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodToday, p)
	p, err = ParsePeriod("year")
	require.NoError(t, err)
	assert.Equal(t, PeriodYear, p)
	_, err = ParsePeriod("decade")
	require.ErrorIs(t, err, domain.ErrValidation)
}
