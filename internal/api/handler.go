// Package api exposes the point-of-sale managers over JSON/HTTP.
package api

import (
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"medstore/m/internal/catalog"
	"medstore/m/internal/customers"
	"medstore/m/internal/dashboard"
	"medstore/m/internal/idempotency"
	"medstore/m/internal/inventory"
	"medstore/m/internal/observability"
	"medstore/m/internal/prescriptions"
	"medstore/m/internal/sales"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	catalog       *catalog.Service
	inventory     *inventory.Service
	sales         *sales.Service
	customers     *customers.Service
	prescriptions *prescriptions.Service
	dashboard     *dashboard.Service
	idempotency   *idempotency.Store
	metrics       *observability.Metrics
	validate      *validator.Validate
	logger        *slog.Logger
	opts          Options
}

// Deps lists the managers served by the API. Idempotency and Metrics may be nil.
type Deps struct {
	Catalog       *catalog.Service
	Inventory     *inventory.Service
	Sales         *sales.Service
	Customers     *customers.Service
	Prescriptions *prescriptions.Service
	Dashboard     *dashboard.Service
	Idempotency   *idempotency.Store
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

// Options tunes the middleware stack.
type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Production         bool
}

// New constructs a Handler.
func New(deps Deps, opts Options) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog:       deps.Catalog,
		inventory:     deps.Inventory,
		sales:         deps.Sales,
		customers:     deps.Customers,
		prescriptions: deps.Prescriptions,
		dashboard:     deps.Dashboard,
		idempotency:   deps.Idempotency,
		metrics:       deps.Metrics,
		validate:      newValidator(),
		logger:        logger,
		opts:          opts,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
