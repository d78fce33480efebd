// Package seed loads a starting medicine catalog from CSV.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// Catalog is the part of the catalog manager the loader needs.
type Catalog interface {
	CreateMedicine(ctx context.Context, req domain.MedicineRequest) (domain.Medicine, error)
	ListMedicines(ctx context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error)
}

// columns lists the required CSV header names.
var columns = []string{"name", "brand", "category", "stock", "min_stock", "price", "cost_price", "batch_number", "expiry_date"}

// LoadMedicinesFile seeds the catalog from csvPath when the catalog is empty.
func LoadMedicinesFile(ctx context.Context, cat Catalog, csvPath string, logger *slog.Logger) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open medicine catalog %s: %w", csvPath, err)
	}
	defer file.Close()
	return LoadMedicines(ctx, cat, file, logger)
}

// LoadMedicines creates one medicine per CSV row through the catalog so that
// opening stock is posted to the ledger. Bad rows are logged and skipped. An
// already populated catalog is left untouched.
func LoadMedicines(ctx context.Context, cat Catalog, r io.Reader, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	existing, err := cat.ListMedicines(ctx, domain.MedicineFilter{})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info("medicine catalog already populated, skipping seed", slog.Int("medicines", len(existing)))
		return 0, nil
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read medicine header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("medicine catalog: missing column %q", col)
		}
	}

	rows := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Warn("unable to read medicine row", slog.Int("line", line), slog.Any("error", err))
			continue
		}
		req, err := parseRow(record, index)
		if err != nil {
			logger.Warn("skipping medicine row", slog.Int("line", line), slog.Any("error", err))
			continue
		}
		if _, err := cat.CreateMedicine(ctx, req); err != nil {
			logger.Warn("unable to insert medicine", slog.String("name", req.Name), slog.Any("error", err))
			continue
		}
		rows++
	}
	logger.Info("seeded medicine catalog", slog.Int("rows", rows))
	return rows, nil
}

func parseRow(record []string, index map[string]int) (domain.MedicineRequest, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	req := domain.MedicineRequest{
		Name:         field("name"),
		Brand:        field("brand"),
		Category:     field("category"),
		BatchNumber:  field("batch_number"),
		ExpiryDate:   field("expiry_date"),
		Manufacturer: field("manufacturer"),
		Composition:  field("composition"),
	}
	var err error
	if req.Stock, err = strconv.ParseInt(field("stock"), 10, 64); err != nil {
		return req, fmt.Errorf("stock: %w", err)
	}
	if req.MinStock, err = strconv.ParseInt(field("min_stock"), 10, 64); err != nil {
		return req, fmt.Errorf("min_stock: %w", err)
	}
	if req.Price, err = decimal.NewFromString(field("price")); err != nil {
		return req, fmt.Errorf("price: %w", err)
	}
	if req.CostPrice, err = decimal.NewFromString(field("cost_price")); err != nil {
		return req, fmt.Errorf("cost_price: %w", err)
	}
	if raw := field("gst_percentage"); raw != "" {
		gst, err := decimal.NewFromString(raw)
		if err != nil {
			return req, fmt.Errorf("gst_percentage: %w", err)
		}
		req.GSTPercentage = &gst
	}
	return req, nil
}
