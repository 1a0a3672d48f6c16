package epi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogurasousui/stockly/internal/core/employee"
	"github.com/ogurasousui/stockly/internal/core/shared"
)

// DeliverEPIInput は EPI 支給時の入力です。DeliveredAt 省略時は当日になります。
type DeliverEPIInput struct {
	OrganizationID string
	EPIID          string
	EmployeeID     string
	Quantity       int
	DeliveredAt    *time.Time
	Notes          *string
}

// ReturnDeliveryInput は支給品返却時の入力です。
type ReturnDeliveryInput struct {
	OrganizationID string
	ID             string
	ReturnedAt     *time.Time
	// ReturnToStock が true の場合、返却数量を EPI 在庫へ戻します。
	ReturnToStock bool
}

// ListDeliveriesInput は支給記録一覧の入力です。
type ListDeliveriesInput struct {
	OrganizationID string
	EmployeeID     *string
	EPIID          *string
	Status         *DeliveryStatus
	PageSize       int
	PageToken      string
}

// ListDeliveriesResult は支給記録一覧の結果です。
type ListDeliveriesResult struct {
	Deliveries    []*Delivery
	NextPageToken string
}

// IssueDeliveryTermInput は受領書発行の入力です。
// DeliveryIDs が空の場合は受領書未発行の使用中支給をすべて対象にします。
type IssueDeliveryTermInput struct {
	OrganizationID string
	EmployeeID     string
	DeliveryIDs    []string
}

// GetDeliveryTermInput は受領書取得の入力です。
type GetDeliveryTermInput struct {
	OrganizationID string
	ID             string
}

// DeliverEPI は在籍中の社員へ EPI を支給し、同一トランザクションで在庫を減らします。
func (s *Service) DeliverEPI(ctx context.Context, in DeliverEPIInput) (*Delivery, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	epiID := strings.TrimSpace(in.EPIID)
	employeeID := strings.TrimSpace(in.EmployeeID)
	if epiID == "" || employeeID == "" {
		return nil, fmt.Errorf("epi or employee id: %w", ErrInvalidID)
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	now := s.clock.Now()
	deliveredAt := shared.TruncateDate(&now)
	if in.DeliveredAt != nil {
		deliveredAt = shared.TruncateDate(in.DeliveredAt)
	}

	var created *Delivery
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		emp, err := s.employees.FindByID(txCtx, orgID, employeeID)
		if err != nil {
			return err
		}
		if !emp.IsActive() {
			return ErrEmployeeInactive
		}

		item, err := s.epis.FindByID(txCtx, orgID, epiID)
		if err != nil {
			return err
		}
		if item.StockQuantity < in.Quantity {
			return ErrInsufficientStock
		}
		if _, err := s.epis.AdjustStock(txCtx, orgID, epiID, -in.Quantity, now); err != nil {
			return err
		}

		result, err := s.deliveries.Create(txCtx, &Delivery{
			OrganizationID: orgID,
			EPIID:          epiID,
			EmployeeID:     employeeID,
			Quantity:       in.Quantity,
			DeliveredAt:    *deliveredAt,
			ExpiresAt:      item.ExpiryFor(*deliveredAt),
			Status:         DeliveryStatusInUse,
			Notes:          shared.NormalizeOptionalString(in.Notes),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx, orgID)
	return created, nil
}

// ReturnDelivery は使用中の支給を返却済みにします。
func (s *Service) ReturnDelivery(ctx context.Context, in ReturnDeliveryInput) (*Delivery, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	returnedAt := shared.TruncateDate(&now)
	if in.ReturnedAt != nil {
		returnedAt = shared.TruncateDate(in.ReturnedAt)
	}

	var returned *Delivery
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.deliveries.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		if existing.Status != DeliveryStatusInUse {
			return ErrDeliveryNotInUse
		}
		if returnedAt.Before(existing.DeliveredAt) {
			return ErrInvalidReturnDate
		}

		existing.Status = DeliveryStatusReturned
		existing.ReturnedAt = returnedAt
		existing.UpdatedAt = now

		result, err := s.deliveries.Update(txCtx, existing)
		if err != nil {
			return err
		}

		if in.ReturnToStock {
			if _, err := s.epis.AdjustStock(txCtx, orgID, existing.EPIID, existing.Quantity, now); err != nil {
				return err
			}
		}

		returned = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.invalidate(ctx, orgID)
	return returned, nil
}

// ExpireOverdue は有効期限を過ぎた使用中の支給を expired に更新します。
func (s *Service) ExpireOverdue(ctx context.Context, organizationID string) (int64, error) {
	orgID, err := shared.NormalizeOrganizationID(organizationID)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.deliveries.ExpireOverdue(txCtx, orgID, s.clock.Now())
		if err != nil {
			return err
		}
		count = n
		return nil
	}); err != nil {
		return 0, err
	}

	if count > 0 {
		s.invalidate(ctx, orgID)
	}
	return count, nil
}

// ListDeliveries は支給記録を検索します。
func (s *Service) ListDeliveries(ctx context.Context, in ListDeliveriesInput) (*ListDeliveriesResult, error) {
	orgID, err := shared.NormalizeOrganizationID(in.OrganizationID)
	if err != nil {
		return nil, err
	}
	limit, err := shared.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := shared.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !isValidDeliveryStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	result := &ListDeliveriesResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		deliveries, token, err := s.deliveries.List(txCtx, ListDeliveriesFilter{
			OrganizationID: orgID,
			EmployeeID:     shared.NormalizeOptionalString(in.EmployeeID),
			EPIID:          shared.NormalizeOptionalString(in.EPIID),
			Status:         in.Status,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return err
		}
		result.Deliveries = deliveries
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// IssueDeliveryTerm は社員の使用中支給をまとめて受領書を発行します。
func (s *Service) IssueDeliveryTerm(ctx context.Context, in IssueDeliveryTermInput) (*DeliveryTerm, error) {
	orgID, employeeID, err := normalizeKeys(in.OrganizationID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var issued *DeliveryTerm
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		emp, err := s.employees.FindByID(txCtx, orgID, employeeID)
		if err != nil {
			return err
		}

		ids, err := s.termDeliveryIDs(txCtx, orgID, emp, in.DeliveryIDs)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.terms.Create(txCtx, &DeliveryTerm{
			OrganizationID: orgID,
			Number:         fmt.Sprintf("TE-%s-%s", now.Format("20060102"), s.termSuffix()),
			EmployeeID:     emp.ID,
			DeliveryIDs:    ids,
			IssuedAt:       now,
		})
		if err != nil {
			return err
		}
		issued = result
		return nil
	}); err != nil {
		return nil, err
	}
	return issued, nil
}

// GetDeliveryTerm は受領書を取得します。
func (s *Service) GetDeliveryTerm(ctx context.Context, in GetDeliveryTermInput) (*DeliveryTerm, error) {
	orgID, id, err := normalizeKeys(in.OrganizationID, in.ID)
	if err != nil {
		return nil, err
	}

	var term *DeliveryTerm
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.terms.FindByID(txCtx, orgID, id)
		if err != nil {
			return err
		}
		term = result
		return nil
	}); err != nil {
		return nil, err
	}
	return term, nil
}

func (s *Service) termDeliveryIDs(ctx context.Context, orgID string, emp *employee.Employee, requested []string) ([]string, error) {
	if len(requested) == 0 {
		status := DeliveryStatusInUse
		deliveries, _, err := s.deliveries.List(ctx, ListDeliveriesFilter{
			OrganizationID: orgID,
			EmployeeID:     &emp.ID,
			Status:         &status,
			Limit:          shared.MaxListPageSize,
		})
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, d := range deliveries {
			if d.TermID == nil {
				ids = append(ids, d.ID)
			}
		}
		if len(ids) == 0 {
			return nil, ErrNoDeliveriesForTerm
		}
		return ids, nil
	}

	seen := make(map[string]struct{}, len(requested))
	ids := make([]string, 0, len(requested))
	for _, raw := range requested {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, fmt.Errorf("delivery id: %w", ErrInvalidID)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		d, err := s.deliveries.FindByID(ctx, orgID, id)
		if err != nil {
			return nil, err
		}
		if d.EmployeeID != emp.ID {
			return nil, fmt.Errorf("delivery %s: %w", id, ErrDeliveryNotFound)
		}
		if d.Status != DeliveryStatusInUse {
			return nil, fmt.Errorf("delivery %s: %w", id, ErrDeliveryNotInUse)
		}
		if d.TermID != nil {
			return nil, fmt.Errorf("delivery %s: %w", id, ErrDeliveryAlreadyInTerm)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func isValidDeliveryStatus(status DeliveryStatus) bool {
	switch status {
	case DeliveryStatusInUse, DeliveryStatusReturned, DeliveryStatusExpired:
		return true
	default:
		return false
	}
}

func randomTermSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
