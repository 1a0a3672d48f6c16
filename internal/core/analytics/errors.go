package analytics

import "errors"

var (
	ErrInvalidPeriod  = errors.New("analytics: from must be before to")
	ErrInvalidHorizon = errors.New("analytics: forecast periods must be between 1 and 24")
	ErrInvalidID      = errors.New("analytics: invalid id")
)
