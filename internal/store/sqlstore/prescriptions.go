package sqlstore

import (
	"context"
	"strings"

	"medstore/m/domain"
)

const prescriptionColumns = `id, customer_id, prescription_number, doctor_name, prescription_date, file_url,
	status, notes, created_at, updated_at`

func (s *Store) GetPrescription(ctx context.Context, id int64) (domain.Prescription, error) {
	var p domain.Prescription
	if err := s.get(ctx, &p, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = ?`, id); err != nil {
		return domain.Prescription{}, err
	}
	items := []domain.PrescriptionItem{}
	err := s.sel(ctx, &items, `SELECT pi.id, pi.prescription_id, pi.medicine_id, COALESCE(m.name, '') AS medicine_name,
		pi.quantity, pi.dosage, pi.status
		FROM prescription_items pi LEFT JOIN medicines m ON m.id = pi.medicine_id
		WHERE pi.prescription_id = ? ORDER BY pi.id`, id)
	if err != nil {
		return domain.Prescription{}, err
	}
	p.Items = items
	return p, nil
}

func (s *Store) ListPrescriptions(ctx context.Context, filter domain.PrescriptionFilter) ([]domain.PrescriptionSummary, error) {
	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		where = append(where, `(LOWER(p.prescription_number) LIKE ? OR LOWER(p.doctor_name) LIKE ? OR LOWER(c.name) LIKE ? OR c.phone LIKE ?)`)
		q := like(filter.Search)
		args = append(args, q, q, q, q)
	}
	if filter.Status != "" {
		where = append(where, `p.status = ?`)
		args = append(args, filter.Status)
	}
	query := `SELECT p.id, p.customer_id, p.prescription_number, p.doctor_name, p.prescription_date, p.file_url,
		p.status, p.notes, p.created_at, p.updated_at,
		COALESCE(c.name, '') AS customer_name, COALESCE(c.phone, '') AS customer_phone,
		(SELECT COUNT(*) FROM prescription_items pi WHERE pi.prescription_id = p.id) AS item_count,
		(SELECT COUNT(*) FROM prescription_items pi WHERE pi.prescription_id = p.id AND pi.status = 'fulfilled') AS fulfilled_count
		FROM prescriptions p LEFT JOIN customers c ON c.id = p.customer_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`
	out := []domain.PrescriptionSummary{}
	err := s.sel(ctx, &out, query, args...)
	return out, err
}

func (t *sqlTx) PrescriptionForUpdate(ctx context.Context, id int64) (domain.Prescription, error) {
	var p domain.Prescription
	err := t.tx.GetContext(ctx, &p, t.forUpdate(`SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = ?`), id)
	return p, mapErr(err)
}

func (t *sqlTx) InsertPrescription(ctx context.Context, p *domain.Prescription) error {
	return t.insert(ctx, &p.ID, `INSERT INTO prescriptions
		(customer_id, prescription_number, doctor_name, prescription_date, file_url, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CustomerID, p.PrescriptionNumber, p.DoctorName, p.PrescriptionDate, p.FileURL, p.Status, p.Notes,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC())
}

func (t *sqlTx) InsertPrescriptionItem(ctx context.Context, item *domain.PrescriptionItem) error {
	return t.insert(ctx, &item.ID, `INSERT INTO prescription_items
		(prescription_id, medicine_id, quantity, dosage, status)
		VALUES (?, ?, ?, ?, ?)`,
		item.PrescriptionID, item.MedicineID, item.Quantity, item.Dosage, item.Status)
}

func (t *sqlTx) UpdatePrescription(ctx context.Context, p domain.Prescription) error {
	return t.execOne(ctx, `UPDATE prescriptions SET doctor_name = ?, status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		p.DoctorName, p.Status, p.Notes, p.UpdatedAt.UTC(), p.ID)
}
