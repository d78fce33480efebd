package api

import (
	"net/http"
	"strings"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
)

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	meds, err := h.catalog.ListMedicines(r.Context(), domain.MedicineFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   domain.StockStatus(strings.ToLower(q.Get("status"))),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meds)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.catalog.GetMedicine(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req domain.MedicineRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.catalog.CreateMedicine(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, med)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var patch domain.MedicinePatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	med, err := h.catalog.UpdateMedicine(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.catalog.DeleteMedicine(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Medicine deleted successfully")
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	moves, err := h.catalog.Movements(r.Context(), id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, moves)
}

// stockRequest is checked by the adjustment manager itself so that missing
// fields and bad movement types keep their own error kinds. Quantity is a
// pointer because zero is a valid adjustment target.
type stockRequest struct {
	MedicineID   int64               `json:"medicine_id"`
	Quantity     *int64              `json:"quantity"`
	MovementType domain.MovementType `json:"movement_type"`
	Reason       string              `json:"reason"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, domain.Errorf(domain.ErrValidation, "Invalid request body: %v", err))
		return
	}
	if req.Quantity == nil {
		h.fail(w, r, domain.Errorf(domain.ErrMissingFields, "Missing required fields"))
		return
	}
	med, err := h.inventory.AdjustStock(r.Context(), inventory.AdjustInput{
		MedicineID:   req.MedicineID,
		MovementType: req.MovementType,
		Quantity:     *req.Quantity,
		Reason:       req.Reason,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.StockAdjusted(req.MovementType)
	respondJSON(w, http.StatusOK, med)
}
