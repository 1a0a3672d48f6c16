package nfe

import (
	"context"

	"github.com/ogurasousui/stockly/internal/core/product"
	"github.com/ogurasousui/stockly/internal/core/stock"
)

// Gateway は NF-e 配信 API への遠隔呼び出しです。
type Gateway interface {
	// Lookup はアクセスキーに対応する NF-e の XML を返します。
	Lookup(ctx context.Context, accessKey string) ([]byte, error)
	Manifest(ctx context.Context, accessKey string, event ManifestEvent) error
}

// OCR は DANFE 画像から項目を読み取るビジョン API です。
type OCR interface {
	ExtractFromDANFE(ctx context.Context, image []byte, contentType string) (*DANFEExtraction, error)
}

// ImportRepository は取り込み記録を永続化します。
type ImportRepository interface {
	Exists(ctx context.Context, organizationID, accessKey string) (bool, error)
	Create(ctx context.Context, imp *Import) (*Import, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*Import, string, error)
}

// ProductFinder は product.Repository が満たします。
type ProductFinder interface {
	FindByEAN(ctx context.Context, organizationID, ean string) (*product.Product, error)
	FindBySKU(ctx context.Context, organizationID, sku string) (*product.Product, error)
}

// StockRecorder は stock.Service が満たします。
type StockRecorder interface {
	RegisterEntry(ctx context.Context, in stock.MovementInput) (*stock.Movement, error)
}
