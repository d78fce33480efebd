// Package dashboard aggregates read-only sales, inventory, customer and
// prescription statistics for the reports endpoint.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"medstore/m/domain"
)

// Repository exposes the aggregate queries the dashboard relies on.
type Repository interface {
	SalesStats(ctx context.Context, since time.Time) (SalesStats, error)
	InventoryStats(ctx context.Context, expiryCutoff string) (InventoryStats, error)
	CustomerStats(ctx context.Context, since time.Time) (CustomerStats, error)
	PrescriptionStats(ctx context.Context, since time.Time) (PrescriptionStats, error)
	TopMedicines(ctx context.Context, since time.Time, limit int) ([]TopMedicine, error)
	SalesSince(ctx context.Context, since time.Time) ([]SalePoint, error)
	CategorySales(ctx context.Context, since time.Time) ([]CategorySales, error)
	PaymentMethods(ctx context.Context, since time.Time) ([]PaymentMethodStats, error)
}

// Service coordinates dashboard query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	loc   *time.Location
	now   func() time.Time
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, loc *time.Location, clock func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, cache: cache, loc: loc, now: clock}
}

// Report returns the dashboard for period, served from cache when fresh.
// Concurrent misses for the same key share one load.
func (s *Service) Report(ctx context.Context, period Period) (Report, error) {
	now := s.now()
	day := now.In(s.loc).Format(domain.DateLayout)
	key, err := s.cache.BuildKey(ctx, "dashboard", string(period), day)
	if err != nil {
		return Report{}, err
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var report Report
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
			return s.load(ctx, period, now)
		})
		return report, err
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (s *Service) load(ctx context.Context, period Period, now time.Time) (Report, error) {
	since := period.Since(now, s.loc)
	trendSince := startOfDay(now, s.loc).AddDate(0, 0, -(TrendDays - 1))
	cutoff := domain.ExpiryCutoff(now.In(s.loc)).Format(domain.DateLayout)

	report := Report{Period: period}
	var points []SalePoint
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Sales, err = s.repo.SalesStats(ctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.Inventory, err = s.repo.InventoryStats(ctx, cutoff)
		return err
	})
	g.Go(func() (err error) {
		report.Customers, err = s.repo.CustomerStats(ctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.Prescriptions, err = s.repo.PrescriptionStats(ctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.TopMedicines, err = s.repo.TopMedicines(ctx, since, TopMedicinesLimit)
		return err
	})
	g.Go(func() (err error) {
		points, err = s.repo.SalesSince(ctx, trendSince)
		return err
	})
	g.Go(func() (err error) {
		report.CategorySales, err = s.repo.CategorySales(ctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.PaymentMethods, err = s.repo.PaymentMethods(ctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report.Sales.AvgOrderValue = decimal.Zero
	if report.Sales.TotalSales > 0 {
		report.Sales.AvgOrderValue = report.Sales.TotalRevenue.
			Div(decimal.NewFromInt(report.Sales.TotalSales)).Round(2)
	}
	report.SalesTrend = BucketTrend(points, now, s.loc)
	if report.TopMedicines == nil {
		report.TopMedicines = []TopMedicine{}
	}
	if report.CategorySales == nil {
		report.CategorySales = []CategorySales{}
	}
	if report.PaymentMethods == nil {
		report.PaymentMethods = []PaymentMethodStats{}
	}
	return report, nil
}
