// Package apperr holds the error kinds every workflow reports to callers.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("already exists")
	ErrAuth              = errors.New("authentication failed")
	ErrInvalid           = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the line item that could not be reserved.
type InsufficientStockError struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q exceeds available quantity: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

func NotFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return errors.Wrapf(ErrForbidden, format, args...)
}

func Conflict(format string, args ...any) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

func Invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalid, format, args...)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
