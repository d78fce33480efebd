package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// medicineField is one updatable column. present reports whether the patch
// carries the field; apply copies it onto the medicine or rejects it.
type medicineField struct {
	name    string
	present func(p domain.MedicinePatch) bool
	apply   func(p domain.MedicinePatch, m *domain.Medicine) error
}

// medicineFields enumerates every field a medicine update may touch. Stock is
// absent on purpose; it only changes through the ledger.
var medicineFields = []medicineField{
	textField("name", func(p domain.MedicinePatch) *string { return p.Name }, func(m *domain.Medicine, v string) { m.Name = v }, true),
	textField("brand", func(p domain.MedicinePatch) *string { return p.Brand }, func(m *domain.Medicine, v string) { m.Brand = v }, true),
	{
		name:    "category",
		present: func(p domain.MedicinePatch) bool { return p.Category != nil },
		apply: func(p domain.MedicinePatch, m *domain.Medicine) error {
			v := NormalizeCategory(*p.Category)
			if v == "" {
				return domain.Errorf(domain.ErrValidation, "category cannot be empty")
			}
			m.Category = v
			return nil
		},
	},
	{
		name:    "min_stock",
		present: func(p domain.MedicinePatch) bool { return p.MinStock != nil },
		apply: func(p domain.MedicinePatch, m *domain.Medicine) error {
			if *p.MinStock < 0 {
				return domain.Errorf(domain.ErrValidation, "min_stock cannot be negative")
			}
			m.MinStock = *p.MinStock
			return nil
		},
	},
	moneyField("price", func(p domain.MedicinePatch) *decimal.Decimal { return p.Price }, func(m *domain.Medicine, v decimal.Decimal) { m.Price = v }),
	moneyField("cost_price", func(p domain.MedicinePatch) *decimal.Decimal { return p.CostPrice }, func(m *domain.Medicine, v decimal.Decimal) { m.CostPrice = v }),
	moneyField("gst_percentage", func(p domain.MedicinePatch) *decimal.Decimal { return p.GSTPercentage }, func(m *domain.Medicine, v decimal.Decimal) { m.GSTPercentage = v }),
	textField("batch_number", func(p domain.MedicinePatch) *string { return p.BatchNumber }, func(m *domain.Medicine, v string) { m.BatchNumber = v }, true),
	textField("expiry_date", func(p domain.MedicinePatch) *string { return p.ExpiryDate }, func(m *domain.Medicine, v string) { m.ExpiryDate = v }, true),
	textField("manufacturer", func(p domain.MedicinePatch) *string { return p.Manufacturer }, func(m *domain.Medicine, v string) { m.Manufacturer = v }, false),
	textField("composition", func(p domain.MedicinePatch) *string { return p.Composition }, func(m *domain.Medicine, v string) { m.Composition = v }, false),
}

func textField(name string, get func(domain.MedicinePatch) *string, set func(*domain.Medicine, string), required bool) medicineField {
	return medicineField{
		name:    name,
		present: func(p domain.MedicinePatch) bool { return get(p) != nil },
		apply: func(p domain.MedicinePatch, m *domain.Medicine) error {
			v := strings.TrimSpace(*get(p))
			if required && v == "" {
				return domain.Errorf(domain.ErrValidation, "%s cannot be empty", name)
			}
			set(m, v)
			return nil
		},
	}
}

// Range checks on money fields run on the whole medicine afterwards.
func moneyField(name string, get func(domain.MedicinePatch) *decimal.Decimal, set func(*domain.Medicine, decimal.Decimal)) medicineField {
	return medicineField{
		name:    name,
		present: func(p domain.MedicinePatch) bool { return get(p) != nil },
		apply: func(p domain.MedicinePatch, m *domain.Medicine) error {
			set(m, *get(p))
			return nil
		},
	}
}

// applyMedicinePatch copies every present field onto m and returns the names
// of the fields it applied.
func applyMedicinePatch(m *domain.Medicine, p domain.MedicinePatch) ([]string, error) {
	var applied []string
	for _, f := range medicineFields {
		if !f.present(p) {
			continue
		}
		if err := f.apply(p, m); err != nil {
			return nil, err
		}
		applied = append(applied, f.name)
	}
	return applied, nil
}
