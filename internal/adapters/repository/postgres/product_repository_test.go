package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/product"
)

func TestProductRepository_List_Search(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProductRepository(mock)
	search := "bota"
	query := regexp.QuoteMeta(`
        SELECT ` + productColumns + `
          FROM products WHERE organization_id = $1 AND (sku ILIKE $2 OR name ILIKE $2)
         ORDER BY created_at DESC, id DESC
         LIMIT $3
        OFFSET $4
    `)

	now := time.Now().UTC()
	mock.ExpectQuery(query).
		WithArgs("org-1", "%bota%", 11, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "sku", "name", "category", "unit", "ean", "unit_cost", "minimum_stock", "status", "created_at", "updated_at"}).
			AddRow("prod-1", "org-1", "BOTA-40", "Bota de segurança 40", "calçado", "PR", "7891234567895", "89.90", "10", "active", now, now))

	products, next, err := repo.List(context.Background(), product.ListProductsFilter{OrganizationID: "org-1", Search: &search, Limit: 10})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(products) != 1 || next != "" {
		t.Fatalf("unexpected page: %d %q", len(products), next)
	}
	if !products[0].UnitCost.Equal(decimal.RequireFromString("89.9")) || products[0].EAN == nil {
		t.Fatalf("unexpected product: %+v", products[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductRepository_LowStock(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewProductRepository(mock)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`HAVING COALESCE(SUM(b.quantity), 0) < p.minimum_stock`)).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "sku", "name", "category", "unit", "ean", "unit_cost", "minimum_stock", "status", "created_at", "updated_at", "balance"}).
			AddRow("prod-1", "org-1", "LUVA-M", "Luva", "epi", "PR", nil, "4.50", "20", "active", now, now, "6"))

	items, err := repo.LowStock(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("LowStock returned error: %v", err)
	}
	if len(items) != 1 || !items[0].Shortage().Equal(decimal.NewFromInt(14)) {
		t.Fatalf("unexpected low stock items: %+v", items)
	}
}

func TestTranslateProductPgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateProductPgError(&pgconn.PgError{Code: uniqueViolationCode}), product.ErrSKUAlreadyExists) {
		t.Fatalf("expected ErrSKUAlreadyExists")
	}
	if !errors.Is(translateProductPgError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "stock_movements_product_id_fkey"}), product.ErrProductInUse) {
		t.Fatalf("expected ErrProductInUse")
	}
	orgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "products_organization_id_fkey"}
	if translateProductPgError(orgErr) != error(orgErr) {
		t.Fatalf("expected organization fk error to pass through")
	}
}
