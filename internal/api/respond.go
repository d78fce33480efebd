package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"medstore/m/domain"
	"medstore/m/internal/idempotency"
)

// errorKinds maps error sentinels to a status code and a stable kind.
var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{domain.ErrEmptyOrder, http.StatusBadRequest, "EmptyOrder"},
	{domain.ErrInvalidItem, http.StatusBadRequest, "InvalidItem"},
	{domain.ErrMissingPaymentMethod, http.StatusBadRequest, "MissingPaymentMethod"},
	{domain.ErrInvalidDiscount, http.StatusBadRequest, "InvalidDiscount"},
	{domain.ErrInsufficientStock, http.StatusBadRequest, "InsufficientStock"},
	{domain.ErrCancellationWindowExpired, http.StatusBadRequest, "CancellationWindowExpired"},
	{domain.ErrMissingFields, http.StatusBadRequest, "MissingFields"},
	{domain.ErrInvalidMovementType, http.StatusBadRequest, "InvalidMovementType"},
	{domain.ErrNoFieldsToUpdate, http.StatusBadRequest, "NoFieldsToUpdate"},
	{domain.ErrValidation, http.StatusBadRequest, "Validation"},
	{domain.ErrMedicineNotFound, http.StatusNotFound, "MedicineNotFound"},
	{domain.ErrSaleNotFound, http.StatusNotFound, "SaleNotFound"},
	{domain.ErrCustomerNotFound, http.StatusNotFound, "CustomerNotFound"},
	{domain.ErrPrescriptionNotFound, http.StatusNotFound, "PrescriptionNotFound"},
	{domain.ErrDuplicatePhone, http.StatusConflict, "DuplicatePhone"},
	{domain.ErrInUse, http.StatusConflict, "InUse"},
	{domain.ErrSequenceExhausted, http.StatusConflict, "SequenceExhausted"},
	{idempotency.ErrInvalidKey, http.StatusBadRequest, "InvalidIdempotencyKey"},
	{idempotency.ErrInFlight, http.StatusConflict, "IdempotencyConflict"},
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify returns the status and kind for err; ok is false for errors that
// must not be shown to clients.
func classify(err error) (status int, kind string, ok bool) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.kind, true
		}
	}
	return http.StatusInternalServerError, "Internal", false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _, _ := classify(err)
	h.failWithStatus(w, r, err, status)
}

// failWithStatus keeps the kind of err but forces the status code.
func (h *Handler) failWithStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	_, kind, ok := classify(err)
	if !ok {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Kind: kind})
		return
	}
	respondJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// decode reads a JSON body and runs struct validation on it.
func (h *Handler) decode(r *http.Request, dest any) error {
	if err := decodeJSON(r, dest); err != nil {
		return domain.Errorf(domain.ErrValidation, "Invalid request body: %v", err)
	}
	return h.check(dest)
}

// check runs the validator; missing required fields get their own kind.
func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Errorf(domain.ErrValidation, "Invalid request")
	}
	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}
	if len(missing) > 0 {
		return domain.Errorf(domain.ErrMissingFields, "Missing required fields: %s", strings.Join(missing, ", "))
	}
	return domain.Errorf(domain.ErrValidation, "Invalid value for: %s", strings.Join(invalid, ", "))
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Errorf(domain.ErrValidation, "Invalid id %q", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Errorf(domain.ErrValidation, "Invalid %s %q", name, raw)
	}
	return n, nil
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
