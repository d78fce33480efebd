package sqlstore

import (
	"context"
	"time"

	"medstore/m/internal/dashboard"
)

var _ dashboard.Repository = (*Store)(nil)

// The window start is computed by the caller so the same SQL runs on both
// dialects.

func (s *Store) SalesStats(ctx context.Context, since time.Time) (dashboard.SalesStats, error) {
	var out dashboard.SalesStats
	err := s.get(ctx, &out, `SELECT COUNT(*) AS total_sales,
		COALESCE(SUM(final_amount), 0) AS total_revenue,
		COALESCE(SUM(gst_amount), 0) AS total_gst
		FROM sales WHERE created_at >= ?`, since.UTC())
	return out, err
}

func (s *Store) InventoryStats(ctx context.Context, expiryCutoff string) (dashboard.InventoryStats, error) {
	var out dashboard.InventoryStats
	err := s.get(ctx, &out, `SELECT COUNT(*) AS total_medicines,
		COUNT(CASE WHEN stock <= min_stock THEN 1 END) AS low_stock_count,
		COUNT(CASE WHEN expiry_date <= ? THEN 1 END) AS expiring_soon_count,
		COALESCE(SUM(stock * cost_price), 0) AS total_inventory_value
		FROM medicines`, expiryCutoff)
	return out, err
}

func (s *Store) CustomerStats(ctx context.Context, since time.Time) (dashboard.CustomerStats, error) {
	var out dashboard.CustomerStats
	err := s.get(ctx, &out, `SELECT
		(SELECT COUNT(DISTINCT customer_id) FROM sales WHERE customer_id IS NOT NULL AND created_at >= ?) AS active_customers,
		(SELECT COUNT(*) FROM customers) AS total_customers`, since.UTC())
	return out, err
}

func (s *Store) PrescriptionStats(ctx context.Context, since time.Time) (dashboard.PrescriptionStats, error) {
	var out dashboard.PrescriptionStats
	err := s.get(ctx, &out, `SELECT COUNT(*) AS total_prescriptions,
		COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending_prescriptions,
		COUNT(CASE WHEN status = 'fulfilled' THEN 1 END) AS fulfilled_prescriptions
		FROM prescriptions WHERE created_at >= ?`, since.UTC())
	return out, err
}

func (s *Store) TopMedicines(ctx context.Context, since time.Time, limit int) ([]dashboard.TopMedicine, error) {
	out := []dashboard.TopMedicine{}
	err := s.sel(ctx, &out, `SELECT m.name, m.brand, m.category,
		CAST(SUM(si.quantity) AS BIGINT) AS total_sold,
		COALESCE(SUM(si.total_price), 0) AS total_revenue
		FROM sale_items si
		JOIN medicines m ON m.id = si.medicine_id
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at >= ?
		GROUP BY m.id, m.name, m.brand, m.category
		ORDER BY total_sold DESC, m.name
		LIMIT ?`, since.UTC(), limit)
	return out, err
}

func (s *Store) SalesSince(ctx context.Context, since time.Time) ([]dashboard.SalePoint, error) {
	out := []dashboard.SalePoint{}
	err := s.sel(ctx, &out, `SELECT created_at, final_amount FROM sales WHERE created_at >= ?`, since.UTC())
	return out, err
}

func (s *Store) CategorySales(ctx context.Context, since time.Time) ([]dashboard.CategorySales, error) {
	out := []dashboard.CategorySales{}
	err := s.sel(ctx, &out, `SELECT m.category,
		COUNT(si.id) AS item_count,
		COALESCE(SUM(si.total_price), 0) AS category_revenue
		FROM sale_items si
		JOIN medicines m ON m.id = si.medicine_id
		JOIN sales s ON s.id = si.sale_id
		WHERE s.created_at >= ?
		GROUP BY m.category
		ORDER BY category_revenue DESC`, since.UTC())
	return out, err
}

func (s *Store) PaymentMethods(ctx context.Context, since time.Time) ([]dashboard.PaymentMethodStats, error) {
	out := []dashboard.PaymentMethodStats{}
	err := s.sel(ctx, &out, `SELECT payment_method,
		COUNT(*) AS transaction_count,
		COALESCE(SUM(final_amount), 0) AS total_amount
		FROM sales WHERE created_at >= ?
		GROUP BY payment_method
		ORDER BY transaction_count DESC`, since.UTC())
	return out, err
}
