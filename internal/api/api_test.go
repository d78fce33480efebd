package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/catalog"
	"medstore/m/internal/customers"
	"medstore/m/internal/dashboard"
	"medstore/m/internal/idempotency"
	"medstore/m/internal/inventory"
	"medstore/m/internal/observability"
	"medstore/m/internal/prescriptions"
	"medstore/m/internal/sales"
	"medstore/m/internal/store/memstore"
)

var testNow = time.Date(2026, 7, 15, 11, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

// emptyRepo answers every dashboard query with zero rows.
type emptyRepo struct{}

func (emptyRepo) SalesStats(context.Context, time.Time) (dashboard.SalesStats, error) {
	return dashboard.SalesStats{}, nil
}
func (emptyRepo) InventoryStats(context.Context, string) (dashboard.InventoryStats, error) {
	return dashboard.InventoryStats{}, nil
}
func (emptyRepo) CustomerStats(context.Context, time.Time) (dashboard.CustomerStats, error) {
	return dashboard.CustomerStats{}, nil
}
func (emptyRepo) PrescriptionStats(context.Context, time.Time) (dashboard.PrescriptionStats, error) {
	return dashboard.PrescriptionStats{}, nil
}
func (emptyRepo) TopMedicines(context.Context, time.Time, int) ([]dashboard.TopMedicine, error) {
	return nil, nil
}
func (emptyRepo) SalesSince(context.Context, time.Time) ([]dashboard.SalePoint, error) {
	return nil, nil
}
func (emptyRepo) CategorySales(context.Context, time.Time) ([]dashboard.CategorySales, error) {
	return nil, nil
}
func (emptyRepo) PaymentMethods(context.Context, time.Time) ([]dashboard.PaymentMethodStats, error) {
	return nil, nil
}

type testServer struct {
	store   *memstore.Store
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := memstore.New()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics()
	ledger := inventory.NewLedger(clock)
	h := New(Deps{
		Catalog:       catalog.NewService(st, ledger, metrics, catalog.ServiceConfig{Clock: clock}),
		Inventory:     inventory.NewService(st, ledger, metrics, inventory.ServiceConfig{}),
		Sales:         sales.NewService(st, ledger, metrics, sales.ServiceConfig{Clock: clock}),
		Customers:     customers.NewService(st, clock),
		Prescriptions: prescriptions.NewService(st, clock, 0),
		Dashboard:     dashboard.NewService(emptyRepo{}, nil, time.UTC, clock),
		Idempotency:   idempotency.New(client, time.Hour),
		Metrics:       metrics,
	}, Options{})
	return &testServer{store: st, handler: h.Router()}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertKind(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, kind, body.Kind)
	assert.NotEmpty(t, body.Error)
}

func (s *testServer) createMedicine(t *testing.T, name string, stock int64, price string) domain.Medicine {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/medicines/", map[string]any{
		"name":         name,
		"brand":        "Generic",
		"category":     "tablets",
		"stock":        stock,
		"min_stock":    5,
		"price":        price,
		"cost_price":   "10",
		"batch_number": "B-1",
		"expiry_date":  "2030-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.Medicine](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSaleCreateAndCancel(t *testing.T) {
	s := newTestServer(t)
	med := s.createMedicine(t, "Paracetamol", 100, "25")
	assert.Equal(t, "Tablets", med.Category)
	assert.Equal(t, domain.StatusGood, med.Status)

	rec := s.do(t, http.MethodPost, "/api/sales/", map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 4}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	assert.Equal(t, "BILL0001", sale.BillNumber)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, sale.GSTAmount.Equal(decimal.NewFromInt(12)))
	assert.True(t, sale.FinalAmount.Equal(decimal.NewFromInt(112)))
	require.Len(t, sale.Items, 1)

	rec = s.do(t, http.MethodGet, "/api/medicines/"+itoa(med.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 96, decodeBody[domain.Medicine](t, rec).Stock)

	rec = s.do(t, http.MethodGet, "/api/sales/?from=2026-07-15&to=2026-07-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.SaleSummary](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/sales/"+itoa(sale.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	msg := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "Sale BILL0001 has been cancelled and stock has been restored", msg["message"])

	rec = s.do(t, http.MethodGet, "/api/medicines/"+itoa(med.ID)+"/movements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	moves := decodeBody[[]domain.StockMovement](t, rec)
	require.Len(t, moves, 3)
	assert.Equal(t, domain.RefSaleCancel, moves[0].ReferenceType)
	assert.EqualValues(t, 4, moves[0].Quantity)

	rec = s.do(t, http.MethodDelete, "/api/sales/"+itoa(sale.ID), nil)
	assertKind(t, rec, http.StatusNotFound, "SaleNotFound")
}

func TestSaleErrors(t *testing.T) {
	s := newTestServer(t)
	med := s.createMedicine(t, "Ibuprofen", 3, "10")

	cases := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"empty order", map[string]any{"items": []any{}, "payment_method": "cash"}, http.StatusBadRequest, "EmptyOrder"},
		{"zero quantity", map[string]any{"items": []map[string]any{{"medicine_id": med.ID, "quantity": 0}}, "payment_method": "cash"}, http.StatusBadRequest, "InvalidItem"},
		{"no payment method", map[string]any{"items": []map[string]any{{"medicine_id": med.ID, "quantity": 1}}}, http.StatusBadRequest, "MissingPaymentMethod"},
		{"unknown medicine", map[string]any{"items": []map[string]any{{"medicine_id": 999, "quantity": 1}}, "payment_method": "cash"}, http.StatusBadRequest, "MedicineNotFound"},
		{"unknown customer", map[string]any{"customer_id": 77, "items": []map[string]any{{"medicine_id": med.ID, "quantity": 1}}, "payment_method": "cash"}, http.StatusBadRequest, "CustomerNotFound"},
		{"too many", map[string]any{"items": []map[string]any{{"medicine_id": med.ID, "quantity": 4}}, "payment_method": "cash"}, http.StatusBadRequest, "InsufficientStock"},
		{"discount too large", map[string]any{"items": []map[string]any{{"medicine_id": med.ID, "quantity": 1}}, "payment_method": "cash", "discount_amount": "50"}, http.StatusBadRequest, "InvalidDiscount"},
		{"bad status", map[string]any{"items": []map[string]any{{"medicine_id": med.ID, "quantity": 1}}, "payment_method": "cash", "payment_status": "free"}, http.StatusBadRequest, "Validation"},
		{"unknown field", map[string]any{"items": []any{}, "payment_method": "cash", "tip": 1}, http.StatusBadRequest, "Validation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/sales/", tc.body)
			assertKind(t, rec, tc.status, tc.kind)
		})
	}

	rec := s.do(t, http.MethodPost, "/api/sales/", map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 4}},
		"payment_method": "cash",
	})
	body := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "Insufficient stock for Ibuprofen. Available: 3, Required: 4", body.Error)

	saleCount, itemCount := s.store.SaleCount()
	assert.Zero(t, saleCount)
	assert.Zero(t, itemCount)
}

func TestSaleIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	med := s.createMedicine(t, "Cetirizine", 20, "5")
	body := map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 2}},
		"payment_method": "upi",
	}
	key := "8a6e0804-2bd0-4672-b79d-d97027f9071a"

	first := s.do(t, http.MethodPost, "/api/sales/", body, "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := s.do(t, http.MethodPost, "/api/sales/", body, "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decodeBody[domain.Sale](t, first).ID, decodeBody[domain.Sale](t, second).ID)

	saleCount, _ := s.store.SaleCount()
	assert.Equal(t, 1, saleCount)

	rec := s.do(t, http.MethodPost, "/api/sales/", body, "Idempotency-Key", "abc")
	assertKind(t, rec, http.StatusBadRequest, "InvalidIdempotencyKey")

	// A failed attempt releases its key.
	failing := map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 500}},
		"payment_method": "upi",
	}
	other := "0f8fad5b-d9cb-469f-a165-70867728950e"
	assertKind(t, s.do(t, http.MethodPost, "/api/sales/", failing, "Idempotency-Key", other), http.StatusBadRequest, "InsufficientStock")
	rec = s.do(t, http.MethodPost, "/api/sales/", body, "Idempotency-Key", other)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdjustStockEndpoint(t *testing.T) {
	s := newTestServer(t)
	med := s.createMedicine(t, "Amoxicillin", 10, "12")

	rec := s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": med.ID, "quantity": 5, "movement_type": "in", "reason": "Delivery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restocked := decodeBody[domain.Medicine](t, rec)
	assert.EqualValues(t, 15, restocked.Stock)
	assert.Equal(t, domain.StatusGood, restocked.Status)

	rec = s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": med.ID, "quantity": 3, "movement_type": "adjustment", "reason": "Count",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	counted := decodeBody[domain.Medicine](t, rec)
	assert.EqualValues(t, 3, counted.Stock)
	assert.Equal(t, domain.StatusLow, counted.Status)

	for _, movementType := range []string{"adjustment", "in", "out"} {
		assertKind(t, s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
			"medicine_id": med.ID, "movement_type": movementType, "reason": "Count",
		}), http.StatusBadRequest, "MissingFields")
	}
	assert.Len(t, s.store.Movements(med.ID), 3)
	rec = s.do(t, http.MethodGet, "/api/medicines/"+itoa(med.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 3, decodeBody[domain.Medicine](t, rec).Stock)

	assertKind(t, s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": med.ID, "quantity": 3, "movement_type": "in",
	}), http.StatusBadRequest, "MissingFields")
	assertKind(t, s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": med.ID, "quantity": 3, "movement_type": "gift", "reason": "x",
	}), http.StatusBadRequest, "InvalidMovementType")
	assertKind(t, s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": med.ID, "quantity": 9, "movement_type": "out", "reason": "Damaged",
	}), http.StatusBadRequest, "InsufficientStock")
	assertKind(t, s.do(t, http.MethodPost, "/api/medicines/stock", map[string]any{
		"medicine_id": 404, "quantity": 1, "movement_type": "in", "reason": "x",
	}), http.StatusNotFound, "MedicineNotFound")
}

func TestMedicineCRUD(t *testing.T) {
	s := newTestServer(t)
	assertKind(t, s.do(t, http.MethodPost, "/api/medicines/", map[string]any{"name": "Only name"}),
		http.StatusBadRequest, "MissingFields")

	med := s.createMedicine(t, "Azithromycin", 30, "40")
	rec := s.do(t, http.MethodPut, "/api/medicines/"+itoa(med.ID), map[string]any{"price": "45.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[domain.Medicine](t, rec).Price.Equal(decimal.RequireFromString("45.5")))

	assertKind(t, s.do(t, http.MethodPut, "/api/medicines/"+itoa(med.ID), map[string]any{}),
		http.StatusBadRequest, "NoFieldsToUpdate")
	assertKind(t, s.do(t, http.MethodPut, "/api/medicines/"+itoa(med.ID), map[string]any{"stock": 1}),
		http.StatusBadRequest, "Validation")

	rec = s.do(t, http.MethodGet, "/api/medicines/?status=good&search=azith", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Medicine](t, rec), 1)
	assertKind(t, s.do(t, http.MethodGet, "/api/medicines/?status=weird", nil), http.StatusBadRequest, "Validation")

	rec = s.do(t, http.MethodPost, "/api/sales/", map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 1}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assertKind(t, s.do(t, http.MethodDelete, "/api/medicines/"+itoa(med.ID), nil), http.StatusConflict, "InUse")

	other := s.createMedicine(t, "Unused", 0, "1")
	rec = s.do(t, http.MethodDelete, "/api/medicines/"+itoa(other.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assertKind(t, s.do(t, http.MethodGet, "/api/medicines/"+itoa(other.ID), nil), http.StatusNotFound, "MedicineNotFound")
	assertKind(t, s.do(t, http.MethodGet, "/api/medicines/abc", nil), http.StatusBadRequest, "Validation")
}

func TestCustomersAndPrescriptions(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/customers/", map[string]any{"name": "Ravi", "phone": "9876543210"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decodeBody[domain.Customer](t, rec)

	assertKind(t, s.do(t, http.MethodPost, "/api/customers/", map[string]any{"name": "Other", "phone": "9876543210"}),
		http.StatusConflict, "DuplicatePhone")
	assertKind(t, s.do(t, http.MethodPost, "/api/customers/", map[string]any{"name": "No phone"}),
		http.StatusBadRequest, "MissingFields")
	assertKind(t, s.do(t, http.MethodPost, "/api/customers/", map[string]any{"name": "Bad", "phone": "12345", "email": "nope"}),
		http.StatusBadRequest, "Validation")

	med := s.createMedicine(t, "Metformin", 10, "8")
	rec = s.do(t, http.MethodPost, "/api/prescriptions/", map[string]any{
		"customer_id": customer.ID,
		"doctor_name": "Dr. Rao",
		"items":       []map[string]any{{"medicine_id": med.ID, "quantity": 30, "dosage": "1-0-1"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	presc := decodeBody[domain.Prescription](t, rec)
	assert.Equal(t, "PRESC0001", presc.PrescriptionNumber)

	rec = s.do(t, http.MethodPut, "/api/prescriptions/"+itoa(presc.ID), map[string]any{"status": "fulfilled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.PrescriptionFulfilled, decodeBody[domain.Prescription](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/prescriptions/?status=fulfilled", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.PrescriptionSummary](t, rec), 1)

	assertKind(t, s.do(t, http.MethodDelete, "/api/customers/"+itoa(customer.ID), nil), http.StatusConflict, "InUse")
	assertKind(t, s.do(t, http.MethodDelete, "/api/medicines/"+itoa(med.ID), nil), http.StatusConflict, "InUse")

	rec = s.do(t, http.MethodGet, "/api/customers/"+itoa(customer.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ravi", decodeBody[domain.CustomerSummary](t, rec).Name)
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/reports/dashboard?period=week", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[dashboard.Report](t, rec)
	assert.Equal(t, dashboard.PeriodWeek, report.Period)
	assert.Len(t, report.SalesTrend, dashboard.TrendDays)

	assertKind(t, s.do(t, http.MethodGet, "/api/reports/dashboard?period=decade", nil), http.StatusBadRequest, "Validation")
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	s := newTestServer(t)
	med := s.createMedicine(t, "Pantoprazole", 10, "9")
	s.store.FailOn("InsertSale", errors.New("disk on fire"))

	rec := s.do(t, http.MethodPost, "/api/sales/", map[string]any{
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 1}},
		"payment_method": "cash",
	})
	assertKind(t, rec, http.StatusInternalServerError, "Internal")
	assert.False(t, strings.Contains(rec.Body.String(), "disk"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `medstore_http_requests_total{code="200",route="/health"}`)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
