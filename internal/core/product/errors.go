package product

import "errors"

var (
	ErrProductNotFound     = errors.New("product: not found")
	ErrSKUAlreadyExists    = errors.New("product: sku already exists")
	ErrInvalidID           = errors.New("product: invalid id")
	ErrInvalidSKU          = errors.New("product: invalid sku")
	ErrInvalidName         = errors.New("product: invalid name")
	ErrInvalidUnit         = errors.New("product: invalid unit")
	ErrInvalidEAN          = errors.New("product: invalid ean")
	ErrInvalidUnitCost     = errors.New("product: unit cost must not be negative")
	ErrInvalidMinimumStock = errors.New("product: minimum stock must not be negative")
	ErrInvalidStatus       = errors.New("product: invalid status")
	ErrProductInUse        = errors.New("product: referenced by stock movements")
)
