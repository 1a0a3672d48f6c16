package supplier

import "errors"

var (
	ErrSupplierNotFound  = errors.New("supplier: not found")
	ErrCNPJAlreadyExists = errors.New("supplier: cnpj already exists")
	ErrInvalidID         = errors.New("supplier: invalid id")
	ErrInvalidName       = errors.New("supplier: invalid name")
	ErrInvalidCNPJ       = errors.New("supplier: invalid cnpj")
	ErrInvalidEmail      = errors.New("supplier: invalid email")
	ErrInvalidPhone      = errors.New("supplier: invalid phone")
	ErrInvalidStatus     = errors.New("supplier: invalid status")
	ErrInvalidScore      = errors.New("supplier: scores must be between 1 and 5")
	ErrInvalidQuantity   = errors.New("supplier: quantities must not be negative")
	ErrSupplierInactive  = errors.New("supplier: supplier is inactive")
)
