package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"medstore/m/domain"
	"medstore/m/internal/sales"
)

const idempotencyScope = "sales"

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, err := queryInt(r, "customer_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.sales.ListSales(r.Context(), sales.ListFilter{
		Search:        q.Get("search"),
		From:          q.Get("from"),
		To:            q.Get("to"),
		PaymentMethod: q.Get("payment_method"),
		CustomerID:    int64(customerID),
		Limit:         limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sale, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// createSale honours an optional Idempotency-Key: a completed key replays the
// sale it created, a key still being processed is rejected.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		prior, err := h.idempotency.Begin(ctx, idempotencyScope, key)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if prior != "" {
			h.replaySale(w, r, prior)
			return
		}
	}

	sale, err := h.sales.CreateSale(ctx, req)
	if err != nil {
		if key != "" {
			if abortErr := h.idempotency.Abort(context.WithoutCancel(ctx), idempotencyScope, key); abortErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", abortErr))
			}
		}
		// A missing medicine or customer is a bad order line, not a missing resource.
		if errors.Is(err, domain.ErrMedicineNotFound) || errors.Is(err, domain.ErrCustomerNotFound) {
			h.failWithStatus(w, r, err, http.StatusBadRequest)
			return
		}
		h.fail(w, r, err)
		return
	}
	if key != "" {
		// The sale has committed; record it even if the client has gone away.
		if err := h.idempotency.Complete(context.WithoutCancel(ctx), idempotencyScope, key, strconv.FormatInt(sale.ID, 10)); err != nil {
			h.logger.Warn("record idempotency key", slog.String("bill_number", sale.BillNumber), slog.Any("error", err))
		}
	}
	h.metrics.SaleCreated()
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) replaySale(w http.ResponseWriter, r *http.Request, prior string) {
	id, err := strconv.ParseInt(prior, 10, 64)
	if err != nil {
		h.fail(w, r, fmt.Errorf("stored idempotency result %q: %w", prior, err))
		return
	}
	sale, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var patch domain.SalePatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	sale, err := h.sales.UpdateSale(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sale, err := h.sales.CancelSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.SaleCancelled()
	respondJSON(w, http.StatusOK, map[string]string{
		"message":     fmt.Sprintf("Sale %s has been cancelled and stock has been restored", sale.BillNumber),
		"bill_number": sale.BillNumber,
	})
}
