package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; the HTTP layer maps each
// one to a status code and a stable kind.
var (
	ErrEmptyOrder                = errors.New("no items provided")
	ErrInvalidItem               = errors.New("invalid item data")
	ErrMissingPaymentMethod      = errors.New("payment method is required")
	ErrInvalidDiscount           = errors.New("invalid discount")
	ErrMedicineNotFound          = errors.New("medicine not found")
	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrSaleNotFound              = errors.New("sale not found")
	ErrCancellationWindowExpired = errors.New("sales can only be cancelled on the same day they were made")
	ErrMissingFields             = errors.New("missing required fields")
	ErrInvalidMovementType       = errors.New("invalid movement type")
	ErrSequenceExhausted         = errors.New("sequence exhausted")
	ErrCustomerNotFound          = errors.New("customer not found")
	ErrPrescriptionNotFound      = errors.New("prescription not found")
	ErrDuplicatePhone            = errors.New("customer with this phone number already exists")
	ErrInUse                     = errors.New("record is referenced by other records")
	ErrNoFieldsToUpdate          = errors.New("no fields to update")
	ErrValidation                = errors.New("validation failed")
)

// Error attaches an actionable message to a sentinel.
type Error struct {
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf wraps kind with a formatted detail message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Err: kind, Detail: fmt.Sprintf(format, args...)}
}

// InsufficientStock names the medicine and both quantities.
func InsufficientStock(name string, available, requested int64) error {
	return Errorf(ErrInsufficientStock, "Insufficient stock for %s. Available: %d, Required: %d", name, available, requested)
}
