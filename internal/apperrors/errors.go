package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal indicates an unexpected failure in infrastructure code.
var ErrInternal = errors.New("internal error")

// ErrForbidden indicates the caller may not perform the requested action.
var ErrForbidden = errors.New("forbidden")

// ErrNoCapacity indicates a workshop has no seat left for the request.
var ErrNoCapacity = errors.New("no capacity available")

// ErrInsufficientStock indicates a product cannot cover the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrDuplicatePendingTransaction indicates the target already has a transaction under review.
var ErrDuplicatePendingTransaction = errors.New("a transaction is already pending review")

// ErrAmountExceedsBalance indicates an approved amount larger than what is still owed.
var ErrAmountExceedsBalance = errors.New("amount exceeds outstanding balance")

// ErrInvalidState indicates the record is not in a state that allows the operation.
var ErrInvalidState = errors.New("invalid state for operation")

// ErrHasPaymentHistory indicates an enrollment cannot be deleted because transactions reference it.
var ErrHasPaymentHistory = errors.New("enrollment has payment history")

// ErrBusy indicates lock contention or a timeout. Retrying is safe.
var ErrBusy = errors.New("resource busy, try again")

// AppError wraps an infrastructure failure with an HTTP-ish code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the cause. Codes of 500 and above also match ErrInternal.
func (e *AppError) Unwrap() []error {
	errs := []error{}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Code >= http.StatusInternalServerError {
		errs = append(errs, ErrInternal)
	}
	return errs
}

// CapacityError reports the shortfall of a failed reservation.
type CapacityError struct {
	Resource  string
	Unit      string
	Requested int
	Available int
	Err       error
}

// NewNoCapacityError builds the error returned when a workshop is full.
func NewNoCapacityError(resource string, requested, available int) *CapacityError {
	return &CapacityError{Resource: resource, Unit: "seats", Requested: requested, Available: available, Err: ErrNoCapacity}
}

// NewInsufficientStockError builds the error returned when a product cannot cover a quantity.
func NewInsufficientStockError(resource string, requested, available int) *CapacityError {
	return &CapacityError{Resource: resource, Unit: "units", Requested: requested, Available: available, Err: ErrInsufficientStock}
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v: %d %s requested, %d available for %s", e.Err, e.Requested, e.Unit, e.Available, e.Resource)
}

func (e *CapacityError) Unwrap() error { return e.Err }

// ConflictError describes the record that blocked an operation.
type ConflictError struct {
	RecordID    string
	State       string
	Amount      *decimal.Decimal
	Outstanding *decimal.Decimal
	Err         error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%v: record %s is %s", e.Err, e.RecordID, e.State)
	if e.Amount != nil {
		msg += fmt.Sprintf(", amount %s", e.Amount.String())
	}
	if e.Outstanding != nil {
		msg += fmt.Sprintf(", outstanding %s", e.Outstanding.String())
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return e.Err }
