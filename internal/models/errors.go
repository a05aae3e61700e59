package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidPrice      = fmt.Errorf("%w: invalid price", ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: invalid quantity", ErrValidation)
	ErrInvalidPartNumber = fmt.Errorf("%w: invalid part number", ErrValidation)
	ErrAmountOverflow    = fmt.Errorf("%w: amount out of range", ErrInvalidQuantity)

	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrDuplicatePartNumber = errors.New("duplicate part number")
	ErrRenderFailure       = errors.New("document render failed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
)

// InsufficientStockError indica cuánto había disponible frente a lo solicitado
type InsufficientStockError struct {
	ItemID     int64  `json:"item_id"`
	PartNumber string `json:"part_number"`
	Available  int    `json:"available"`
	Requested  int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.PartNumber, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFoundError envuelve ErrNotFound con el recurso buscado
func NotFoundError(resource string, key any) error {
	return fmt.Errorf("%s %v: %w", resource, key, ErrNotFound)
}
