package purchasing

import "errors"

var (
	ErrOrderNotFound       = errors.New("purchasing: order not found")
	ErrInvalidID           = errors.New("purchasing: invalid id")
	ErrNoItems             = errors.New("purchasing: order must have at least one item")
	ErrInvalidItem         = errors.New("purchasing: item must reference exactly one of product or epi")
	ErrInvalidQuantity     = errors.New("purchasing: invalid quantity")
	ErrInvalidUnitCost     = errors.New("purchasing: unit cost must not be negative")
	ErrInvalidStatus       = errors.New("purchasing: invalid status")
	ErrInvalidTransition   = errors.New("purchasing: invalid status transition")
	ErrLocationRequired    = errors.New("purchasing: location is required for product items")
	ErrUnknownItem         = errors.New("purchasing: received quantity refers to an unknown item")
	ErrNumberAlreadyExists = errors.New("purchasing: order number already exists")
)
