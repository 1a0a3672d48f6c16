package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const productColumns = `id, organization_id, sku, name, category, unit, ean, unit_cost, minimum_stock, status, created_at, updated_at`

// ProductRepository は PostgreSQL を利用した商品永続化の実装です。
type ProductRepository struct {
	pool pgdb.Queryer
}

// NewProductRepository は ProductRepository を生成します。
func NewProductRepository(pool pgdb.Queryer) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create は商品を登録します。
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO products (organization_id, sku, name, category, unit, ean, unit_cost, minimum_stock, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+productColumns,
		p.OrganizationID, p.SKU, p.Name, p.Category, p.Unit, nullableString(p.EAN),
		p.UnitCost, p.MinimumStock, string(p.Status), p.CreatedAt, p.UpdatedAt)

	created, err := scanProduct(row)
	if err != nil {
		return nil, translateProductPgError(err)
	}
	return created, nil
}

// Update は商品を更新します。
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) (*product.Product, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE products
           SET sku = $1,
               name = $2,
               category = $3,
               unit = $4,
               ean = $5,
               unit_cost = $6,
               minimum_stock = $7,
               status = $8,
               updated_at = $9
         WHERE organization_id = $10
           AND id = $11
        RETURNING `+productColumns,
		p.SKU, p.Name, p.Category, p.Unit, nullableString(p.EAN), p.UnitCost, p.MinimumStock,
		string(p.Status), p.UpdatedAt, p.OrganizationID, p.ID)

	updated, err := scanProduct(row)
	if err != nil {
		return nil, translateProductPgError(err)
	}
	return updated, nil
}

// Delete は商品を削除します。在庫移動から参照されている場合は削除できません。
func (r *ProductRepository) Delete(ctx context.Context, organizationID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM products WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return translateProductPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

// FindByID は ID で商品を取得します。
func (r *ProductRepository) FindByID(ctx context.Context, organizationID, id string) (*product.Product, error) {
	return r.findOne(ctx, "id", organizationID, id)
}

// FindBySKU は SKU で商品を取得します。
func (r *ProductRepository) FindBySKU(ctx context.Context, organizationID, sku string) (*product.Product, error) {
	return r.findOne(ctx, "sku", organizationID, sku)
}

// FindByEAN は EAN で商品を取得します。
func (r *ProductRepository) FindByEAN(ctx context.Context, organizationID, ean string) (*product.Product, error) {
	return r.findOne(ctx, "ean", organizationID, ean)
}

func (r *ProductRepository) findOne(ctx context.Context, column, organizationID, value string) (*product.Product, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+productColumns+`
          FROM products
         WHERE organization_id = $1
           AND `+column+` = $2
         ORDER BY created_at, id
         LIMIT 1
    `, organizationID, value)

	found, err := scanProduct(row)
	if err != nil {
		return nil, translateProductPgError(err)
	}
	return found, nil
}

// List は商品の一覧を取得します。Search は SKU と名前の部分一致です。
func (r *ProductRepository) List(ctx context.Context, filter product.ListProductsFilter) ([]*product.Product, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.Category != nil {
		b.add("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}
	if filter.Search != nil {
		b.add("(sku ILIKE ? OR name ILIKE ?)", "%"+*filter.Search+"%")
	}

	query := `
        SELECT ` + productColumns + `
          FROM products` + b.where() + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	products, err := r.query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}

	products, next := trimPage(products, filter.Limit, filter.Offset)
	return products, next, nil
}

// ListAll は組織の商品を SKU 順ですべて取得します。
func (r *ProductRepository) ListAll(ctx context.Context, organizationID string) ([]*product.Product, error) {
	return r.query(ctx, `
        SELECT `+productColumns+`
          FROM products
         WHERE organization_id = $1
         ORDER BY sku, id
    `, organizationID)
}

// LowStock は全ロケーション合計の在庫が最低在庫を下回る有効な商品を取得します。
func (r *ProductRepository) LowStock(ctx context.Context, organizationID string) ([]*product.LowStockItem, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT p.id, p.organization_id, p.sku, p.name, p.category, p.unit, p.ean, p.unit_cost, p.minimum_stock, p.status, p.created_at, p.updated_at,
               COALESCE(SUM(b.quantity), 0) AS balance
          FROM products p
          LEFT JOIN stock_balances b ON b.product_id = p.id
         WHERE p.organization_id = $1
           AND p.status = 'active'
         GROUP BY p.id
        HAVING COALESCE(SUM(b.quantity), 0) < p.minimum_stock
         ORDER BY p.sku, p.id
    `, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*product.LowStockItem
	for rows.Next() {
		var (
			p       product.Product
			ean     sql.NullString
			status  string
			balance decimal.Decimal
		)
		if err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.Category, &p.Unit, &ean,
			&p.UnitCost, &p.MinimumStock, &status, &p.CreatedAt, &p.UpdatedAt, &balance,
		); err != nil {
			return nil, err
		}
		p.EAN = stringPtr(ean)
		p.Status = product.Status(status)
		items = append(items, &product.LowStockItem{Product: &p, Balance: balance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ProductRepository) query(ctx context.Context, query string, args ...any) ([]*product.Product, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var (
		p      product.Product
		ean    sql.NullString
		status string
	)

	if err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.SKU,
		&p.Name,
		&p.Category,
		&p.Unit,
		&ean,
		&p.UnitCost,
		&p.MinimumStock,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrProductNotFound
		}
		return nil, err
	}

	p.EAN = stringPtr(ean)
	p.Status = product.Status(status)
	return &p, nil
}

func translateProductPgError(err error) error {
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case uniqueViolationCode:
			return product.ErrSKUAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName != "products_organization_id_fkey" {
				return product.ErrProductInUse
			}
		}
	}
	return err
}
