package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/purchasing"
	"github.com/ogurasousui/stockly/internal/core/supplier"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const purchaseOrderColumns = `id, organization_id, supplier_id, number, status, location_id, expected_date, received_date, notes, total, created_at, updated_at`

// PurchaseOrderRepository は発注と明細の永続化実装です。
// 明細を含む書き込みは呼び出し側のトランザクション内で実行してください。
type PurchaseOrderRepository struct {
	pool pgdb.Queryer
}

// NewPurchaseOrderRepository は PurchaseOrderRepository を生成します。
func NewPurchaseOrderRepository(pool pgdb.Queryer) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{pool: pool}
}

// Create は発注ヘッダと明細を登録します。
func (r *PurchaseOrderRepository) Create(ctx context.Context, o *purchasing.Order) (*purchasing.Order, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO purchase_orders (organization_id, supplier_id, number, status, location_id, expected_date, received_date, notes, total, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+purchaseOrderColumns,
		o.OrganizationID, o.SupplierID, o.Number, string(o.Status), nullableString(o.LocationID),
		nullableDate(o.ExpectedDate), nullableDate(o.ReceivedDate), nullableString(o.Notes),
		o.Total, o.CreatedAt, o.UpdatedAt)

	created, err := scanPurchaseOrder(row)
	if err != nil {
		return nil, translatePurchaseOrderPgError(err)
	}

	for i, item := range o.Items {
		inserted := *item
		if err := exec.QueryRow(ctx, `
            INSERT INTO purchase_order_items (order_id, line, product_id, epi_id, quantity, received_quantity, unit_cost)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id
        `, created.ID, i+1, nullableString(item.ProductID), nullableString(item.EPIID),
			item.Quantity, item.ReceivedQuantity, item.UnitCost).Scan(&inserted.ID); err != nil {
			return nil, translatePurchaseOrderPgError(err)
		}
		inserted.OrderID = created.ID
		created.Items = append(created.Items, &inserted)
	}
	return created, nil
}

// Update は状態・日付・受領数量を更新します。
func (r *PurchaseOrderRepository) Update(ctx context.Context, o *purchasing.Order) (*purchasing.Order, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE purchase_orders
           SET status = $1,
               location_id = $2,
               expected_date = $3,
               received_date = $4,
               notes = $5,
               total = $6,
               updated_at = $7
         WHERE organization_id = $8
           AND id = $9
        RETURNING `+purchaseOrderColumns,
		string(o.Status), nullableString(o.LocationID), nullableDate(o.ExpectedDate), nullableDate(o.ReceivedDate),
		nullableString(o.Notes), o.Total, o.UpdatedAt, o.OrganizationID, o.ID)

	updated, err := scanPurchaseOrder(row)
	if err != nil {
		return nil, translatePurchaseOrderPgError(err)
	}

	for _, item := range o.Items {
		if _, err := exec.Exec(ctx, `
            UPDATE purchase_order_items
               SET received_quantity = $1
             WHERE order_id = $2
               AND id = $3
        `, item.ReceivedQuantity, updated.ID, item.ID); err != nil {
			return nil, translatePurchaseOrderPgError(err)
		}
	}

	items, err := r.loadItems(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	updated.Items = items
	return updated, nil
}

// FindByID は明細付きで発注を取得します。
func (r *PurchaseOrderRepository) FindByID(ctx context.Context, organizationID, id string) (*purchasing.Order, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanPurchaseOrder(exec.QueryRow(ctx, `
        SELECT `+purchaseOrderColumns+`
          FROM purchase_orders
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id))
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	found.Items = items
	return found, nil
}

// List は発注ヘッダの一覧を取得します。
func (r *PurchaseOrderRepository) List(ctx context.Context, filter purchasing.ListOrdersFilter) ([]*purchasing.Order, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.SupplierID != nil {
		b.add("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}

	query := `
        SELECT ` + purchaseOrderColumns + `
          FROM purchase_orders` + b.where() + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var orders []*purchasing.Order
	for rows.Next() {
		o, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, "", err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	orders, next := trimPage(orders, filter.Limit, filter.Offset)
	return orders, next, nil
}

func (r *PurchaseOrderRepository) loadItems(ctx context.Context, orderID string) ([]*purchasing.Item, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, order_id, product_id, epi_id, quantity, received_quantity, unit_cost
          FROM purchase_order_items
         WHERE order_id = $1
         ORDER BY line
    `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*purchasing.Item
	for rows.Next() {
		var (
			item             purchasing.Item
			productID, epiID sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &productID, &epiID, &item.Quantity, &item.ReceivedQuantity, &item.UnitCost); err != nil {
			return nil, err
		}
		item.ProductID = stringPtr(productID)
		item.EPIID = stringPtr(epiID)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPurchaseOrder(row pgx.Row) (*purchasing.Order, error) {
	var (
		o                      purchasing.Order
		status                 string
		locationID, notes      sql.NullString
		expectedDate, received sql.NullTime
	)

	if err := row.Scan(
		&o.ID,
		&o.OrganizationID,
		&o.SupplierID,
		&o.Number,
		&status,
		&locationID,
		&expectedDate,
		&received,
		&notes,
		&o.Total,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, purchasing.ErrOrderNotFound
		}
		return nil, err
	}

	o.Status = purchasing.Status(status)
	o.LocationID = stringPtr(locationID)
	o.ExpectedDate = datePtr(expectedDate)
	o.ReceivedDate = datePtr(received)
	o.Notes = stringPtr(notes)
	return &o, nil
}

func translatePurchaseOrderPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return purchasing.ErrOrderNotFound
	}
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case uniqueViolationCode:
			return purchasing.ErrNumberAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "purchase_orders_supplier_id_fkey" {
				return supplier.ErrSupplierNotFound
			}
			return purchasing.ErrInvalidItem
		case checkViolationCode:
			return purchasing.ErrInvalidItem
		}
	}
	return err
}
