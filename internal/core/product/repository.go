package product

import "context"

// Repository は商品の永続化を行います。
type Repository interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	Delete(ctx context.Context, organizationID, id string) error
	FindByID(ctx context.Context, organizationID, id string) (*Product, error)
	FindBySKU(ctx context.Context, organizationID, sku string) (*Product, error)
	FindByEAN(ctx context.Context, organizationID, ean string) (*Product, error)
	List(ctx context.Context, filter ListProductsFilter) ([]*Product, string, error)
	ListAll(ctx context.Context, organizationID string) ([]*Product, error)
	// LowStock は在庫合計が最低在庫を下回る有効な商品を返します。
	LowStock(ctx context.Context, organizationID string) ([]*LowStockItem, error)
}

// ListProductsFilter は商品一覧の検索条件です。
type ListProductsFilter struct {
	OrganizationID string
	Category       *string
	Status         *Status
	Search         *string
	Limit          int
	Offset         int
}
