package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/stockly/internal/core/analytics"
	"github.com/ogurasousui/stockly/internal/core/compliance"
	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/epi"
	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/organization"
	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/purchasing"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
	"github.com/ogurasousui/stockly/internal/core/supplier"
	"github.com/ogurasousui/stockly/internal/core/user"
)

var (
	invalidArgumentErrors = []error{
		shared.ErrInvalidPageSize,
		shared.ErrInvalidPageToken,
		shared.ErrInvalidOrganizationID,
		organization.ErrInvalidName,
		organization.ErrInvalidCode,
		organization.ErrInvalidCNPJ,
		organization.ErrInvalidStatus,
		organization.ErrInvalidID,
		user.ErrInvalidEmail,
		user.ErrInvalidName,
		user.ErrInvalidRole,
		user.ErrInvalidStatus,
		user.ErrInvalidID,
		employee.ErrInvalidID,
		employee.ErrInvalidName,
		employee.ErrInvalidDocument,
		employee.ErrInvalidEmail,
		employee.ErrInvalidStatus,
		employee.ErrInvalidDateRange,
		epi.ErrInvalidID,
		epi.ErrInvalidName,
		epi.ErrInvalidCategory,
		epi.ErrInvalidValidityDays,
		epi.ErrInvalidMinimumStock,
		epi.ErrInvalidQuantity,
		epi.ErrInvalidRequirement,
		epi.ErrInvalidStatus,
		epi.ErrInvalidReturnDate,
		compliance.ErrNoRecipients,
		compliance.ErrInvalidRecipient,
		product.ErrInvalidID,
		product.ErrInvalidSKU,
		product.ErrInvalidName,
		product.ErrInvalidUnit,
		product.ErrInvalidEAN,
		product.ErrInvalidUnitCost,
		product.ErrInvalidMinimumStock,
		product.ErrInvalidStatus,
		stock.ErrInvalidID,
		stock.ErrInvalidQuantity,
		stock.ErrInvalidUnitCost,
		stock.ErrInvalidMovementType,
		stock.ErrInvalidPeriod,
		stock.ErrSameLocation,
		stock.ErrInvalidLocationCode,
		stock.ErrInvalidLocationName,
		supplier.ErrInvalidID,
		supplier.ErrInvalidName,
		supplier.ErrInvalidCNPJ,
		supplier.ErrInvalidEmail,
		supplier.ErrInvalidPhone,
		supplier.ErrInvalidStatus,
		supplier.ErrInvalidScore,
		supplier.ErrInvalidQuantity,
		purchasing.ErrInvalidID,
		purchasing.ErrNoItems,
		purchasing.ErrInvalidItem,
		purchasing.ErrInvalidQuantity,
		purchasing.ErrInvalidUnitCost,
		purchasing.ErrInvalidStatus,
		purchasing.ErrLocationRequired,
		purchasing.ErrUnknownItem,
		analytics.ErrInvalidPeriod,
		analytics.ErrInvalidHorizon,
		analytics.ErrInvalidID,
		nfe.ErrInvalidAccessKey,
		nfe.ErrInvalidXML,
		nfe.ErrInvalidManifest,
		nfe.ErrInvalidLocation,
		nfe.ErrEmptyImage,
		nfe.ErrAccessKeyMismatch,
	}

	notFoundErrors = []error{
		organization.ErrOrganizationNotFound,
		user.ErrUserNotFound,
		user.ErrOrganizationNotFound,
		employee.ErrEmployeeNotFound,
		employee.ErrOrganizationNotFound,
		epi.ErrEPINotFound,
		epi.ErrRequirementNotFound,
		epi.ErrDeliveryNotFound,
		epi.ErrTermNotFound,
		compliance.ErrEmployeeNotEvaluated,
		product.ErrProductNotFound,
		stock.ErrLocationNotFound,
		supplier.ErrSupplierNotFound,
		purchasing.ErrOrderNotFound,
		nfe.ErrInvoiceNotFound,
	}

	alreadyExistsErrors = []error{
		organization.ErrCodeAlreadyExists,
		user.ErrEmailAlreadyExists,
		employee.ErrDocumentAlreadyExists,
		product.ErrSKUAlreadyExists,
		stock.ErrLocationCodeExists,
		supplier.ErrCNPJAlreadyExists,
		purchasing.ErrNumberAlreadyExists,
		nfe.ErrAlreadyImported,
		epi.ErrDeliveryAlreadyInTerm,
	}

	failedPreconditionErrors = []error{
		epi.ErrInsufficientStock,
		epi.ErrEPIInUse,
		epi.ErrDeliveryNotInUse,
		epi.ErrEmployeeInactive,
		epi.ErrNoDeliveriesForTerm,
		compliance.ErrAlertsDisabled,
		product.ErrProductInUse,
		stock.ErrInsufficientStock,
		stock.ErrProductInactive,
		supplier.ErrSupplierInactive,
		purchasing.ErrInvalidTransition,
	}

	unavailableErrors = []error{
		nfe.ErrGatewayUnavailable,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		return s.Err()
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case isAny(err, invalidArgumentErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	case isAny(err, notFoundErrors):
		return status.Error(codes.NotFound, err.Error())
	case isAny(err, alreadyExistsErrors):
		return status.Error(codes.AlreadyExists, err.Error())
	case isAny(err, failedPreconditionErrors):
		return status.Error(codes.FailedPrecondition, err.Error())
	case isAny(err, unavailableErrors):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
