package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, organizationID, id string) error
	FindByID(ctx context.Context, organizationID, id string) (*Employee, error)
	FindByDocument(ctx context.Context, organizationID, document string) (*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	ListActive(ctx context.Context, organizationID string) ([]*Employee, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	OrganizationID string
	Status         *Status
	Department     *string
	Limit          int
	Offset         int
}
