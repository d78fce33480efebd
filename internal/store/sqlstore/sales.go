package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"medstore/m/domain"
	"medstore/m/internal/store"
)

const saleColumns = `id, customer_id, bill_number, total_amount, discount_amount, gst_amount, final_amount,
	payment_method, payment_status, notes, created_at`

const saleItemsQuery = `SELECT si.id, si.sale_id, si.medicine_id, COALESCE(m.name, '') AS medicine_name,
	si.quantity, si.unit_price, si.total_price, si.gst_amount
	FROM sale_items si LEFT JOIN medicines m ON m.id = si.medicine_id
	WHERE si.sale_id = ? ORDER BY si.id`

func (s *Store) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	var sale domain.Sale
	if err := s.get(ctx, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id); err != nil {
		return domain.Sale{}, err
	}
	items := []domain.SaleItem{}
	if err := s.sel(ctx, &items, saleItemsQuery, id); err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleSummary, error) {
	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		where = append(where, `(LOWER(s.bill_number) LIKE ? OR LOWER(c.name) LIKE ? OR c.phone LIKE ?)`)
		p := like(filter.Search)
		args = append(args, p, p, p)
	}
	if !filter.From.IsZero() {
		where = append(where, `s.created_at >= ?`)
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, `s.created_at < ?`)
		args = append(args, filter.To.UTC())
	}
	if filter.PaymentMethod != "" {
		where = append(where, `s.payment_method = ?`)
		args = append(args, filter.PaymentMethod)
	}
	if filter.CustomerID != 0 {
		where = append(where, `s.customer_id = ?`)
		args = append(args, filter.CustomerID)
	}
	query := `SELECT s.id, s.bill_number, s.final_amount, s.payment_method, s.payment_status, s.created_at,
		COALESCE(c.name, '') AS customer_name, COALESCE(c.phone, '') AS customer_phone,
		(SELECT COUNT(*) FROM sale_items si WHERE si.sale_id = s.id) AS item_count
		FROM sales s LEFT JOIN customers c ON c.id = s.customer_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	out := []domain.SaleSummary{}
	err := s.sel(ctx, &out, query, args...)
	return out, err
}

func (t *sqlTx) MaxSeriesNumber(ctx context.Context, series store.Series) (int64, error) {
	// Table and column come from the fixed series definitions, never from input.
	query := fmt.Sprintf(`SELECT COALESCE(MAX(CAST(SUBSTR(%[1]s, %[2]d) AS BIGINT)), 0) FROM %[3]s WHERE %[1]s LIKE ?`,
		series.Column, len(series.Prefix)+1, series.Table)
	var n int64
	err := t.get(ctx, &n, query, series.Prefix+"%")
	return n, err
}

func (t *sqlTx) InsertSale(ctx context.Context, s *domain.Sale) error {
	return t.insert(ctx, &s.ID, `INSERT INTO sales
		(customer_id, bill_number, total_amount, discount_amount, gst_amount, final_amount,
		 payment_method, payment_status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CustomerID, s.BillNumber, s.TotalAmount, s.DiscountAmount, s.GSTAmount, s.FinalAmount,
		s.PaymentMethod, s.PaymentStatus, s.Notes, s.CreatedAt.UTC())
}

func (t *sqlTx) InsertSaleItem(ctx context.Context, item *domain.SaleItem) error {
	return t.insert(ctx, &item.ID, `INSERT INTO sale_items
		(sale_id, medicine_id, quantity, unit_price, total_price, gst_amount)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.SaleID, item.MedicineID, item.Quantity, item.UnitPrice, item.TotalPrice, item.GSTAmount)
}

func (t *sqlTx) SaleForUpdate(ctx context.Context, id int64) (domain.Sale, error) {
	var sale domain.Sale
	err := t.tx.GetContext(ctx, &sale, t.forUpdate(`SELECT `+saleColumns+` FROM sales WHERE id = ?`), id)
	return sale, mapErr(err)
}

func (t *sqlTx) SaleItems(ctx context.Context, saleID int64) ([]domain.SaleItem, error) {
	items := []domain.SaleItem{}
	err := t.tx.SelectContext(ctx, &items, t.tx.Rebind(saleItemsQuery), saleID)
	return items, mapErr(err)
}

func (t *sqlTx) UpdateSale(ctx context.Context, s domain.Sale) error {
	return t.execOne(ctx, `UPDATE sales SET payment_status = ?, notes = ? WHERE id = ?`, s.PaymentStatus, s.Notes, s.ID)
}

func (t *sqlTx) DeleteSaleItems(ctx context.Context, saleID int64) error {
	return t.exec(ctx, `DELETE FROM sale_items WHERE sale_id = ?`, saleID)
}

func (t *sqlTx) DeleteSale(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM sales WHERE id = ?`, id)
}
