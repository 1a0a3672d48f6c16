package epi

import "errors"

var (
	ErrInvalidID             = errors.New("epi: invalid id")
	ErrInvalidName           = errors.New("epi: invalid name")
	ErrInvalidCategory       = errors.New("epi: invalid category")
	ErrInvalidValidityDays   = errors.New("epi: validity days must not be negative")
	ErrInvalidMinimumStock   = errors.New("epi: minimum stock must not be negative")
	ErrInvalidQuantity       = errors.New("epi: quantity must be positive")
	ErrInsufficientStock     = errors.New("epi: insufficient stock")
	ErrEPINotFound           = errors.New("epi: not found")
	ErrEPIInUse              = errors.New("epi: referenced by deliveries")
	ErrInvalidRequirement    = errors.New("epi: requirement needs a department or a position")
	ErrRequirementNotFound   = errors.New("epi: requirement not found")
	ErrDeliveryNotFound      = errors.New("epi: delivery not found")
	ErrInvalidStatus         = errors.New("epi: invalid delivery status")
	ErrDeliveryNotInUse      = errors.New("epi: delivery is not in use")
	ErrInvalidReturnDate     = errors.New("epi: return date before delivery date")
	ErrEmployeeInactive      = errors.New("epi: employee is not active")
	ErrNoDeliveriesForTerm   = errors.New("epi: no deliveries available for term")
	ErrDeliveryAlreadyInTerm = errors.New("epi: delivery already bound to a term")
	ErrTermNotFound          = errors.New("epi: delivery term not found")
)
