package supplier

import "context"

// Repository は仕入先の永続化を行います。
type Repository interface {
	Create(ctx context.Context, s *Supplier) (*Supplier, error)
	Update(ctx context.Context, s *Supplier) (*Supplier, error)
	Delete(ctx context.Context, organizationID, id string) error
	FindByID(ctx context.Context, organizationID, id string) (*Supplier, error)
	FindByCNPJ(ctx context.Context, organizationID, cnpj string) (*Supplier, error)
	List(ctx context.Context, filter ListSuppliersFilter) ([]*Supplier, string, error)
}

// ListSuppliersFilter は仕入先一覧の検索条件です。
type ListSuppliersFilter struct {
	OrganizationID string
	Status         *Status
	Limit          int
	Offset         int
}

// EvaluationRepository は評価の永続化を行います。
type EvaluationRepository interface {
	Create(ctx context.Context, e *Evaluation) (*Evaluation, error)
	ListBySupplier(ctx context.Context, organizationID, supplierID string) ([]*Evaluation, error)
}

// PerformanceRepository は納入実績の永続化を行います。
type PerformanceRepository interface {
	Create(ctx context.Context, p *Performance) (*Performance, error)
	ListBySupplier(ctx context.Context, organizationID, supplierID string) ([]*Performance, error)
}
