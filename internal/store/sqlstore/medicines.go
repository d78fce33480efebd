package sqlstore

import (
	"context"
	"strings"
	"time"

	"medstore/m/domain"
)

const medicineColumns = `id, name, brand, category, stock, min_stock, price, cost_price, gst_percentage,
	batch_number, expiry_date, manufacturer, composition, created_at, updated_at`

func (s *Store) GetMedicine(ctx context.Context, id int64) (domain.Medicine, error) {
	var m domain.Medicine
	err := s.get(ctx, &m, `SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)
	return m, err
}

func (s *Store) ListMedicines(ctx context.Context, filter domain.MedicineFilter, now time.Time) ([]domain.Medicine, error) {
	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		where = append(where, `(LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(category) LIKE ?)`)
		p := like(filter.Search)
		args = append(args, p, p, p)
	}
	if filter.Category != "" {
		where = append(where, `LOWER(category) = ?`)
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Category)))
	}
	cutoff := domain.ExpiryCutoff(now).Format(domain.DateLayout)
	switch filter.Status {
	case domain.StatusLow:
		where = append(where, `stock <= min_stock`)
	case domain.StatusExpiring:
		where = append(where, `stock > min_stock AND expiry_date <= ?`)
		args = append(args, cutoff)
	case domain.StatusGood:
		where = append(where, `stock > min_stock AND expiry_date > ?`)
		args = append(args, cutoff)
	}
	query := `SELECT ` + medicineColumns + ` FROM medicines`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	meds := []domain.Medicine{}
	err := s.sel(ctx, &meds, query, args...)
	return meds, err
}

func (s *Store) ListMovements(ctx context.Context, medicineID int64, limit int) ([]domain.StockMovement, error) {
	moves := []domain.StockMovement{}
	err := s.sel(ctx, &moves, `SELECT id, medicine_id, movement_type, quantity, reason, reference_type, reference_id, created_at
		FROM stock_movements WHERE medicine_id = ? ORDER BY id DESC LIMIT ?`, medicineID, limit)
	return moves, err
}

func (t *sqlTx) MedicineForUpdate(ctx context.Context, id int64) (domain.Medicine, error) {
	var m domain.Medicine
	err := t.tx.GetContext(ctx, &m, t.forUpdate(`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`), id)
	return m, mapErr(err)
}

func (t *sqlTx) SetMedicineStock(ctx context.Context, id, stock int64, at time.Time) error {
	return t.execOne(ctx, `UPDATE medicines SET stock = ?, updated_at = ? WHERE id = ?`, stock, at.UTC(), id)
}

func (t *sqlTx) InsertMovement(ctx context.Context, m *domain.StockMovement) error {
	return t.insert(ctx, &m.ID, `INSERT INTO stock_movements
		(medicine_id, movement_type, quantity, reason, reference_type, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.MedicineID, string(m.MovementType), m.Quantity, m.Reason, m.ReferenceType, m.ReferenceID, m.CreatedAt.UTC())
}

func (t *sqlTx) InsertMedicine(ctx context.Context, m *domain.Medicine) error {
	return t.insert(ctx, &m.ID, `INSERT INTO medicines
		(name, brand, category, stock, min_stock, price, cost_price, gst_percentage,
		 batch_number, expiry_date, manufacturer, composition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Brand, m.Category, m.Stock, m.MinStock, m.Price, m.CostPrice, m.GSTPercentage,
		m.BatchNumber, m.ExpiryDate, m.Manufacturer, m.Composition, m.CreatedAt.UTC(), m.UpdatedAt.UTC())
}

// UpdateMedicine writes catalog fields only; stock is owned by the ledger.
func (t *sqlTx) UpdateMedicine(ctx context.Context, m domain.Medicine) error {
	return t.execOne(ctx, `UPDATE medicines SET
		name = ?, brand = ?, category = ?, min_stock = ?, price = ?, cost_price = ?, gst_percentage = ?,
		batch_number = ?, expiry_date = ?, manufacturer = ?, composition = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Brand, m.Category, m.MinStock, m.Price, m.CostPrice, m.GSTPercentage,
		m.BatchNumber, m.ExpiryDate, m.Manufacturer, m.Composition, m.UpdatedAt.UTC(), m.ID)
}

func (t *sqlTx) DeleteMedicine(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM medicines WHERE id = ?`, id)
}

func (t *sqlTx) MedicineReferenced(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := t.get(ctx, &n, `SELECT
		(SELECT COUNT(*) FROM sale_items WHERE medicine_id = ?) +
		(SELECT COUNT(*) FROM prescription_items WHERE medicine_id = ?)`, id, id)
	return n > 0, err
}
