package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

const customerColumns = `id, name, phone, email, address, date_of_birth, gender, created_at, updated_at`

const customerSummaryQuery = `SELECT c.id, c.name, c.phone, c.email, c.address, c.date_of_birth, c.gender,
	c.created_at, c.updated_at,
	COUNT(s.id) AS total_orders,
	COALESCE(SUM(s.final_amount), 0) AS total_purchases,
	MAX(s.created_at) AS last_visit
	FROM customers c LEFT JOIN sales s ON s.customer_id = c.id`

// customerRow scans the aggregate columns. SQLite returns MAX(created_at) as
// text, so last_visit goes through scanTime.
type customerRow struct {
	domain.Customer
	TotalOrders    int64           `db:"total_orders"`
	TotalPurchases decimal.Decimal `db:"total_purchases"`
	LastVisit      scanTime        `db:"last_visit"`
}

func (r customerRow) summary() domain.CustomerSummary {
	return domain.CustomerSummary{
		Customer:       r.Customer,
		TotalOrders:    r.TotalOrders,
		TotalPurchases: r.TotalPurchases,
		LastVisit:      r.LastVisit.ptr(),
	}
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (domain.CustomerSummary, error) {
	var row customerRow
	if err := s.get(ctx, &row, customerSummaryQuery+` WHERE c.id = ? GROUP BY c.id`, id); err != nil {
		return domain.CustomerSummary{}, err
	}
	return row.summary(), nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.CustomerSummary, error) {
	query := customerSummaryQuery
	var args []any
	if search != "" {
		query += ` WHERE (LOWER(c.name) LIKE ? OR c.phone LIKE ? OR LOWER(c.email) LIKE ?)`
		p := like(search)
		args = append(args, p, p, p)
	}
	query += ` GROUP BY c.id ORDER BY c.name, c.id`
	var rows []customerRow
	if err := s.sel(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.CustomerSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

func (t *sqlTx) CustomerForUpdate(ctx context.Context, id int64) (domain.Customer, error) {
	var c domain.Customer
	err := t.tx.GetContext(ctx, &c, t.forUpdate(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id)
	return c, mapErr(err)
}

func (t *sqlTx) CustomerIDByPhone(ctx context.Context, phone string) (int64, error) {
	var id int64
	err := t.get(ctx, &id, `SELECT id FROM customers WHERE phone = ?`, phone)
	return id, err
}

func (t *sqlTx) InsertCustomer(ctx context.Context, c *domain.Customer) error {
	return t.insert(ctx, &c.ID, `INSERT INTO customers
		(name, phone, email, address, date_of_birth, gender, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Phone, c.Email, c.Address, c.DateOfBirth, c.Gender, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
}

func (t *sqlTx) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	return t.execOne(ctx, `UPDATE customers SET
		name = ?, phone = ?, email = ?, address = ?, date_of_birth = ?, gender = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.Address, c.DateOfBirth, c.Gender, c.UpdatedAt.UTC(), c.ID)
}

func (t *sqlTx) DeleteCustomer(ctx context.Context, id int64) error {
	return t.execOne(ctx, `DELETE FROM customers WHERE id = ?`, id)
}

func (t *sqlTx) CustomerReferenced(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := t.get(ctx, &n, `SELECT
		(SELECT COUNT(*) FROM sales WHERE customer_id = ?) +
		(SELECT COUNT(*) FROM prescriptions WHERE customer_id = ?)`, id, id)
	return n > 0, err
}

// scanTime accepts a timestamp as time.Time or in the text layouts SQLite
// hands back for computed columns.
type scanTime struct {
	t     time.Time
	valid bool
}

var textTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func (s *scanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = scanTime{}
		return nil
	case time.Time:
		*s = scanTime{t: v.UTC(), valid: true}
		return nil
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	}
	return fmt.Errorf("sqlstore: cannot scan %T into timestamp", src)
}

func (s *scanTime) parse(text string) error {
	// Drop a monotonic clock suffix written by time.Time.String.
	text, _, _ = strings.Cut(text, " m=")
	for _, layout := range textTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			*s = scanTime{t: t.UTC(), valid: true}
			return nil
		}
	}
	return fmt.Errorf("sqlstore: unrecognised timestamp %q", text)
}

func (s scanTime) ptr() *time.Time {
	if !s.valid {
		return nil
	}
	t := s.t
	return &t
}
