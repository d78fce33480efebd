package api

import (
	"net/http"

	"medstore/m/domain"
)

func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.prescriptions.List(r.Context(), domain.PrescriptionFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.prescriptions.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) createPrescription(w http.ResponseWriter, r *http.Request) {
	var req domain.PrescriptionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.prescriptions.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) updatePrescription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var patch domain.PrescriptionPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.prescriptions.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
