package stock

import "errors"

var (
	ErrInvalidID           = errors.New("stock: invalid id")
	ErrInvalidQuantity     = errors.New("stock: quantity must be positive")
	ErrInvalidUnitCost     = errors.New("stock: unit cost must not be negative")
	ErrInvalidMovementType = errors.New("stock: invalid movement type")
	ErrInvalidPeriod       = errors.New("stock: period end before start")
	ErrInsufficientStock   = errors.New("stock: insufficient stock")
	ErrSameLocation        = errors.New("stock: transfer requires distinct locations")
	ErrLocationNotFound    = errors.New("stock: location not found")
	ErrLocationCodeExists  = errors.New("stock: location code already exists")
	ErrInvalidLocationCode = errors.New("stock: invalid location code")
	ErrInvalidLocationName = errors.New("stock: invalid location name")
	ErrProductInactive     = errors.New("stock: product is inactive")
)
