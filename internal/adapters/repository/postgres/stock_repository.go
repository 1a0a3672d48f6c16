package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/stockly/internal/core/stock"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

// LocationRepository はロケーションの永続化実装です。
type LocationRepository struct {
	pool pgdb.Queryer
}

// NewLocationRepository は LocationRepository を生成します。
func NewLocationRepository(pool pgdb.Queryer) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// Create はロケーションを登録します。
func (r *LocationRepository) Create(ctx context.Context, l *stock.Location) (*stock.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO locations (organization_id, code, name, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, organization_id, code, name, created_at
    `, l.OrganizationID, l.Code, l.Name, l.CreatedAt)

	created, err := scanLocation(row)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == uniqueViolationCode {
			return nil, stock.ErrLocationCodeExists
		}
		return nil, err
	}
	return created, nil
}

// FindByID は ID でロケーションを取得します。
func (r *LocationRepository) FindByID(ctx context.Context, organizationID, id string) (*stock.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	return scanLocation(exec.QueryRow(ctx, `
        SELECT id, organization_id, code, name, created_at
          FROM locations
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id))
}

// FindByCode はコードでロケーションを取得します。
func (r *LocationRepository) FindByCode(ctx context.Context, organizationID, code string) (*stock.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	return scanLocation(exec.QueryRow(ctx, `
        SELECT id, organization_id, code, name, created_at
          FROM locations
         WHERE organization_id = $1
           AND code = $2
         LIMIT 1
    `, organizationID, code))
}

// List は組織のロケーションをコード順に取得します。
func (r *LocationRepository) List(ctx context.Context, organizationID string) ([]*stock.Location, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, organization_id, code, name, created_at
          FROM locations
         WHERE organization_id = $1
         ORDER BY code, id
    `, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*stock.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locations, nil
}

func scanLocation(row pgx.Row) (*stock.Location, error) {
	var l stock.Location
	if err := row.Scan(&l.ID, &l.OrganizationID, &l.Code, &l.Name, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stock.ErrLocationNotFound
		}
		return nil, err
	}
	return &l, nil
}

const movementColumns = `id, organization_id, product_id, location_id, type, quantity, unit_cost, reference, occurred_at, created_at`

// MovementRepository は在庫移動の永続化実装です。移動記録は追記のみです。
type MovementRepository struct {
	pool pgdb.Queryer
}

// NewMovementRepository は MovementRepository を生成します。
func NewMovementRepository(pool pgdb.Queryer) *MovementRepository {
	return &MovementRepository{pool: pool}
}

// Create は在庫移動を記録します。
func (r *MovementRepository) Create(ctx context.Context, m *stock.Movement) (*stock.Movement, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO stock_movements (organization_id, product_id, location_id, type, quantity, unit_cost, reference, occurred_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+movementColumns,
		m.OrganizationID, m.ProductID, m.LocationID, string(m.Type), m.Quantity, m.UnitCost,
		nullableString(m.Reference), m.OccurredAt, m.CreatedAt)

	created, err := scanMovement(row)
	if err != nil {
		return nil, translateStockPgError(err)
	}
	return created, nil
}

// List は在庫移動を発生日時の古い順に取得します。
func (r *MovementRepository) List(ctx context.Context, filter stock.ListMovementsFilter) ([]*stock.Movement, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.ProductID != nil {
		b.add("product_id = ?", *filter.ProductID)
	}
	if filter.LocationID != nil {
		b.add("location_id = ?", *filter.LocationID)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		b.add("type = ANY(?)", types)
	}
	if filter.From != nil {
		b.add("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		b.add("occurred_at < ?", *filter.To)
	}

	query := `
        SELECT ` + movementColumns + `
          FROM stock_movements` + b.where() + `
         ORDER BY occurred_at, created_at, id` + b.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var movements []*stock.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, "", err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	movements, next := trimPage(movements, filter.Limit, filter.Offset)
	return movements, next, nil
}

func scanMovement(row pgx.Row) (*stock.Movement, error) {
	var (
		m         stock.Movement
		typ       string
		reference sql.NullString
	)

	if err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.ProductID,
		&m.LocationID,
		&typ,
		&m.Quantity,
		&m.UnitCost,
		&reference,
		&m.OccurredAt,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}

	m.Type = stock.MovementType(typ)
	m.Reference = stringPtr(reference)
	return &m, nil
}

// BalanceRepository は在庫残高の永続化実装です。
type BalanceRepository struct {
	pool pgdb.Queryer
}

// NewBalanceRepository は BalanceRepository を生成します。
func NewBalanceRepository(pool pgdb.Queryer) *BalanceRepository {
	return &BalanceRepository{pool: pool}
}

// Apply は残高に delta を加算します。行が存在しなければ作成します。
// 負残高は CHECK 制約で拒否され ErrInsufficientStock になります。
func (r *BalanceRepository) Apply(ctx context.Context, organizationID, productID, locationID string, delta decimal.Decimal, at time.Time) (*stock.Balance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO stock_balances (organization_id, product_id, location_id, quantity, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (product_id, location_id) DO UPDATE
           SET quantity = stock_balances.quantity + EXCLUDED.quantity,
               updated_at = EXCLUDED.updated_at
        RETURNING organization_id, product_id, location_id, quantity, updated_at
    `, organizationID, productID, locationID, delta, at)

	balance, err := scanBalance(row)
	if err != nil {
		return nil, translateStockPgError(err)
	}
	return balance, nil
}

// List は残高を取得します。productID 指定時はその商品のみです。
func (r *BalanceRepository) List(ctx context.Context, organizationID string, productID *string) ([]*stock.Balance, error) {
	var b whereBuilder
	b.add("organization_id = ?", organizationID)
	if productID != nil {
		b.add("product_id = ?", *productID)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT organization_id, product_id, location_id, quantity, updated_at
          FROM stock_balances`+b.where()+`
         ORDER BY product_id, location_id
    `, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []*stock.Balance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func scanBalance(row pgx.Row) (*stock.Balance, error) {
	var b stock.Balance
	if err := row.Scan(&b.OrganizationID, &b.ProductID, &b.LocationID, &b.Quantity, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func translateStockPgError(err error) error {
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case checkViolationCode:
			if pgErr.ConstraintName == "stock_balances_quantity_check" {
				return stock.ErrInsufficientStock
			}
			if pgErr.ConstraintName == "stock_movements_quantity_check" {
				return stock.ErrInvalidQuantity
			}
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "stock_movements_location_id_fkey" || pgErr.ConstraintName == "stock_balances_location_id_fkey" {
				return stock.ErrLocationNotFound
			}
		}
	}
	return err
}
