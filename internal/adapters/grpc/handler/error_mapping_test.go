package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/stockly/internal/core/epi"
	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/purchasing"
	"github.com/ogurasousui/stockly/internal/core/shared"
	"github.com/ogurasousui/stockly/internal/core/stock"
	"github.com/ogurasousui/stockly/internal/core/user"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: shared.ErrInvalidPageToken, want: codes.InvalidArgument},
		{err: fmt.Errorf("create: %w", product.ErrInvalidSKU), want: codes.InvalidArgument},
		{err: user.ErrUserNotFound, want: codes.NotFound},
		{err: stock.ErrLocationNotFound, want: codes.NotFound},
		{err: product.ErrSKUAlreadyExists, want: codes.AlreadyExists},
		{err: nfe.ErrAlreadyImported, want: codes.AlreadyExists},
		{err: stock.ErrInsufficientStock, want: codes.FailedPrecondition},
		{err: epi.ErrEmployeeInactive, want: codes.FailedPrecondition},
		{err: purchasing.ErrInvalidTransition, want: codes.FailedPrecondition},
		{err: fmt.Errorf("lookup: %w", nfe.ErrGatewayUnavailable), want: codes.Unavailable},
		{err: status.Error(codes.PermissionDenied, "nope"), want: codes.PermissionDenied},
		{err: errors.New("boom"), want: codes.Internal},
		{err: context.Canceled, want: codes.Canceled},
		{err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: codes.DeadlineExceeded},
	}

	for _, tt := range tests {
		if got := status.Code(toStatusError(tt.err)); got != tt.want {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.want, got)
		}
	}

	if toStatusError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
