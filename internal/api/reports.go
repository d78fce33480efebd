package api

import (
	"net/http"

	"medstore/m/internal/dashboard"
)

func (h *Handler) dashboardReport(w http.ResponseWriter, r *http.Request) {
	period, err := dashboard.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.dashboard.Report(r.Context(), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
