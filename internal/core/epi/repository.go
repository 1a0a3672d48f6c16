package epi

import (
	"context"
	"time"

	"github.com/ogurasousui/stockly/internal/core/employee"
)

// Repository は EPI 種別の永続化を行います。
type Repository interface {
	Create(ctx context.Context, e *EPI) (*EPI, error)
	Update(ctx context.Context, e *EPI) (*EPI, error)
	Delete(ctx context.Context, organizationID, id string) error
	FindByID(ctx context.Context, organizationID, id string) (*EPI, error)
	List(ctx context.Context, filter ListEPIsFilter) ([]*EPI, string, error)
	ListAll(ctx context.Context, organizationID string) ([]*EPI, error)
	// AdjustStock は在庫を delta だけ増減します。結果が負になる場合は ErrInsufficientStock を返します。
	AdjustStock(ctx context.Context, organizationID, id string, delta int, updatedAt time.Time) (*EPI, error)
}

// ListEPIsFilter は EPI 一覧の検索条件です。
type ListEPIsFilter struct {
	OrganizationID string
	Category       *string
	LowStockOnly   bool
	Limit          int
	Offset         int
}

// RequirementRepository は EPI 要件の永続化を行います。
type RequirementRepository interface {
	Create(ctx context.Context, r *Requirement) (*Requirement, error)
	Delete(ctx context.Context, organizationID, id string) error
	List(ctx context.Context, organizationID string) ([]*Requirement, error)
	// ListMatching は部署または役職が一致する要件を返します。
	ListMatching(ctx context.Context, organizationID, department, position string) ([]*Requirement, error)
}

// DeliveryRepository は支給記録の永続化を行います。
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) (*Delivery, error)
	Update(ctx context.Context, d *Delivery) (*Delivery, error)
	FindByID(ctx context.Context, organizationID, id string) (*Delivery, error)
	List(ctx context.Context, filter ListDeliveriesFilter) ([]*Delivery, string, error)
	ListInUse(ctx context.Context, organizationID string) ([]*Delivery, error)
	// ExpireOverdue は期限切れの使用中支給を expired に更新し、件数を返します。
	ExpireOverdue(ctx context.Context, organizationID string, now time.Time) (int64, error)
}

// ListDeliveriesFilter は支給記録一覧の検索条件です。
type ListDeliveriesFilter struct {
	OrganizationID string
	EmployeeID     *string
	EPIID          *string
	Status         *DeliveryStatus
	Limit          int
	Offset         int
}

// TermRepository は受領書の永続化を行います。
type TermRepository interface {
	// Create は受領書を保存し、DeliveryIDs の支給記録へ受領書 ID を紐づけます。
	Create(ctx context.Context, term *DeliveryTerm) (*DeliveryTerm, error)
	FindByID(ctx context.Context, organizationID, id string) (*DeliveryTerm, error)
}

// EmployeeReader は支給先社員の参照に使います。employee.Repository が満たします。
type EmployeeReader interface {
	FindByID(ctx context.Context, organizationID, id string) (*employee.Employee, error)
}
