// Package pricing computes sale line and order totals with exact decimal
// arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// Line is a requested quantity priced from the locked catalog snapshot.
type Line struct {
	MedicineID    int64
	Quantity      int64
	UnitPrice     decimal.Decimal
	GSTPercentage decimal.Decimal
}

type PricedLine struct {
	MedicineID int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	GSTAmount  decimal.Decimal
}

type Totals struct {
	Lines       []PricedLine
	Subtotal    decimal.Decimal
	GSTTotal    decimal.Decimal
	Discount    decimal.Decimal
	FinalAmount decimal.Decimal
}

// Currency amounts are kept to two decimal places.
const places = 2

// ComputeSaleTotals prices every line and applies a flat discount.
// GST is rounded per line, half away from zero.
func ComputeSaleTotals(lines []Line, discount decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, domain.ErrEmptyOrder
	}
	out := Totals{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
		GSTTotal: decimal.Zero,
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Totals{}, domain.Errorf(domain.ErrInvalidItem, "Invalid quantity %d for medicine %d", l.Quantity, l.MedicineID)
		}
		total := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)).Round(places)
		gst := total.Mul(l.GSTPercentage).Shift(-2).Round(places)
		out.Lines = append(out.Lines, PricedLine{
			MedicineID: l.MedicineID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: total,
			GSTAmount:  gst,
		})
		out.Subtotal = out.Subtotal.Add(total)
		out.GSTTotal = out.GSTTotal.Add(gst)
	}
	gross := out.Subtotal.Add(out.GSTTotal)
	if discount.IsNegative() || discount.GreaterThan(gross) {
		return Totals{}, domain.Errorf(domain.ErrInvalidDiscount,
			"Discount %s must be between 0 and %s", discount.StringFixed(places), gross.StringFixed(places))
	}
	out.Discount = discount
	out.FinalAmount = gross.Sub(discount)
	return out, nil
}
