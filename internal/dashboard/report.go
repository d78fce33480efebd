package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// Period selects the reporting window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// TrendDays is the length of the daily sales trend, today included.
const TrendDays = 7

// TopMedicinesLimit bounds the best sellers list.
const TopMedicinesLimit = 10

// ParsePeriod defaults to today.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", domain.Errorf(domain.ErrValidation, "Invalid period %q", raw)
}

// Since returns the start of the window in loc.
func (p Period) Since(now time.Time, loc *time.Location) time.Time {
	start := startOfDay(now, loc)
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, -7)
	case PeriodMonth:
		return start.AddDate(0, 0, -30)
	case PeriodYear:
		return start.AddDate(0, 0, -365)
	}
	return start
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

type SalesStats struct {
	TotalSales    int64           `db:"total_sales" json:"total_sales"`
	TotalRevenue  decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	AvgOrderValue decimal.Decimal `db:"-" json:"avg_order_value"`
	TotalGST      decimal.Decimal `db:"total_gst" json:"total_gst"`
}

type InventoryStats struct {
	TotalMedicines      int64           `db:"total_medicines" json:"total_medicines"`
	LowStockCount       int64           `db:"low_stock_count" json:"low_stock_count"`
	ExpiringSoonCount   int64           `db:"expiring_soon_count" json:"expiring_soon_count"`
	TotalInventoryValue decimal.Decimal `db:"total_inventory_value" json:"total_inventory_value"`
}

// CustomerStats counts distinct buyers in the window against all customers.
type CustomerStats struct {
	ActiveCustomers int64 `db:"active_customers" json:"active_customers"`
	TotalCustomers  int64 `db:"total_customers" json:"total_customers"`
}

type PrescriptionStats struct {
	TotalPrescriptions     int64 `db:"total_prescriptions" json:"total_prescriptions"`
	PendingPrescriptions   int64 `db:"pending_prescriptions" json:"pending_prescriptions"`
	FulfilledPrescriptions int64 `db:"fulfilled_prescriptions" json:"fulfilled_prescriptions"`
}

type TopMedicine struct {
	Name         string          `db:"name" json:"name"`
	Brand        string          `db:"brand" json:"brand"`
	Category     string          `db:"category" json:"category"`
	TotalSold    int64           `db:"total_sold" json:"total_sold"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

// SalePoint is one sale reduced to what the trend needs.
type SalePoint struct {
	CreatedAt   time.Time       `db:"created_at"`
	FinalAmount decimal.Decimal `db:"final_amount"`
}

type TrendPoint struct {
	Date         string          `json:"date"`
	SalesCount   int64           `json:"sales_count"`
	DailyRevenue decimal.Decimal `json:"daily_revenue"`
}

type CategorySales struct {
	Category        string          `db:"category" json:"category"`
	ItemCount       int64           `db:"item_count" json:"item_count"`
	CategoryRevenue decimal.Decimal `db:"category_revenue" json:"category_revenue"`
}

type PaymentMethodStats struct {
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	TransactionCount int64           `db:"transaction_count" json:"transaction_count"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
}

// Report is the dashboard payload.
type Report struct {
	Period         Period               `json:"period"`
	Sales          SalesStats           `json:"sales"`
	Inventory      InventoryStats       `json:"inventory"`
	Customers      CustomerStats        `json:"customers"`
	Prescriptions  PrescriptionStats    `json:"prescriptions"`
	TopMedicines   []TopMedicine        `json:"top_medicines"`
	SalesTrend     []TrendPoint         `json:"sales_trend"`
	CategorySales  []CategorySales      `json:"category_sales"`
	PaymentMethods []PaymentMethodStats `json:"payment_methods"`
}

// BucketTrend groups sales into the last TrendDays calendar days in loc,
// newest first. Days without sales are reported with zero totals.
func BucketTrend(points []SalePoint, now time.Time, loc *time.Location) []TrendPoint {
	today := startOfDay(now, loc)
	index := make(map[string]int, TrendDays)
	out := make([]TrendPoint, 0, TrendDays)
	for i := 0; i < TrendDays; i++ {
		day := today.AddDate(0, 0, -i).Format(domain.DateLayout)
		index[day] = len(out)
		out = append(out, TrendPoint{Date: day, DailyRevenue: decimal.Zero})
	}
	for _, p := range points {
		i, ok := index[p.CreatedAt.In(loc).Format(domain.DateLayout)]
		if !ok {
			continue
		}
		out[i].SalesCount++
		out[i].DailyRevenue = out[i].DailyRevenue.Add(p.FinalAmount)
	}
	return out
}
