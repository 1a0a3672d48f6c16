package organization

import "context"

// Repository は組織エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, org *Organization) (*Organization, error)
	Update(ctx context.Context, org *Organization) (*Organization, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Organization, error)
	FindByCode(ctx context.Context, code string) (*Organization, error)
	List(ctx context.Context, filter ListOrganizationsFilter) ([]*Organization, string, error)
}

// ListOrganizationsFilter は一覧取得時の検索条件を表します。
type ListOrganizationsFilter struct {
	Limit  int
	Offset int
	Status *Status
}
