package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/supplier"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const supplierColumns = `id, organization_id, name, cnpj, email, phone, status, created_at, updated_at`

// SupplierRepository は仕入先の永続化実装です。
type SupplierRepository struct {
	pool pgdb.Queryer
}

// NewSupplierRepository は SupplierRepository を生成します。
func NewSupplierRepository(pool pgdb.Queryer) *SupplierRepository {
	return &SupplierRepository{pool: pool}
}

// Create は仕入先を登録します。
func (r *SupplierRepository) Create(ctx context.Context, s *supplier.Supplier) (*supplier.Supplier, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO suppliers (organization_id, name, cnpj, email, phone, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+supplierColumns,
		s.OrganizationID, s.Name, s.CNPJ, nullableString(s.Email), nullableString(s.Phone),
		string(s.Status), s.CreatedAt, s.UpdatedAt)

	created, err := scanSupplier(row)
	if err != nil {
		return nil, translateSupplierPgError(err)
	}
	return created, nil
}

// Update は仕入先を更新します。
func (r *SupplierRepository) Update(ctx context.Context, s *supplier.Supplier) (*supplier.Supplier, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE suppliers
           SET name = $1,
               cnpj = $2,
               email = $3,
               phone = $4,
               status = $5,
               updated_at = $6
         WHERE organization_id = $7
           AND id = $8
        RETURNING `+supplierColumns,
		s.Name, s.CNPJ, nullableString(s.Email), nullableString(s.Phone), string(s.Status),
		s.UpdatedAt, s.OrganizationID, s.ID)

	updated, err := scanSupplier(row)
	if err != nil {
		return nil, translateSupplierPgError(err)
	}
	return updated, nil
}

// Delete は仕入先を削除します。
func (r *SupplierRepository) Delete(ctx context.Context, organizationID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM suppliers WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return translateSupplierPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return supplier.ErrSupplierNotFound
	}
	return nil
}

// FindByID は ID で仕入先を取得します。
func (r *SupplierRepository) FindByID(ctx context.Context, organizationID, id string) (*supplier.Supplier, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	return scanSupplier(exec.QueryRow(ctx, `
        SELECT `+supplierColumns+`
          FROM suppliers
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id))
}

// FindByCNPJ は CNPJ で仕入先を取得します。
func (r *SupplierRepository) FindByCNPJ(ctx context.Context, organizationID, cnpj string) (*supplier.Supplier, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	return scanSupplier(exec.QueryRow(ctx, `
        SELECT `+supplierColumns+`
          FROM suppliers
         WHERE organization_id = $1
           AND cnpj = $2
         LIMIT 1
    `, organizationID, cnpj))
}

// List は仕入先の一覧を取得します。
func (r *SupplierRepository) List(ctx context.Context, filter supplier.ListSuppliersFilter) ([]*supplier.Supplier, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}

	query := `
        SELECT ` + supplierColumns + `
          FROM suppliers` + b.where() + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var suppliers []*supplier.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, "", err
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	suppliers, next := trimPage(suppliers, filter.Limit, filter.Offset)
	return suppliers, next, nil
}

func scanSupplier(row pgx.Row) (*supplier.Supplier, error) {
	var (
		s            supplier.Supplier
		email, phone sql.NullString
		status       string
	)

	if err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.CNPJ, &email, &phone, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, supplier.ErrSupplierNotFound
		}
		return nil, err
	}

	s.Email = stringPtr(email)
	s.Phone = stringPtr(phone)
	s.Status = supplier.Status(status)
	return &s, nil
}

func translateSupplierPgError(err error) error {
	if pgErr, ok := pgError(err); ok && pgErr.Code == uniqueViolationCode {
		return supplier.ErrCNPJAlreadyExists
	}
	return err
}

// EvaluationRepository は仕入先評価の永続化実装です。
type EvaluationRepository struct {
	pool pgdb.Queryer
}

// NewEvaluationRepository は EvaluationRepository を生成します。
func NewEvaluationRepository(pool pgdb.Queryer) *EvaluationRepository {
	return &EvaluationRepository{pool: pool}
}

// Create は評価を記録します。
func (r *EvaluationRepository) Create(ctx context.Context, e *supplier.Evaluation) (*supplier.Evaluation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	created := *e
	if err := exec.QueryRow(ctx, `
        INSERT INTO supplier_evaluations (organization_id, supplier_id, quality, delivery, price, service, comment, evaluated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `, e.OrganizationID, e.SupplierID, e.Quality, e.Delivery, e.Price, e.Service,
		nullableString(e.Comment), e.EvaluatedAt).Scan(&created.ID); err != nil {
		if pgErr, ok := pgError(err); ok {
			switch pgErr.Code {
			case foreignKeyViolationCode:
				return nil, supplier.ErrSupplierNotFound
			case checkViolationCode:
				return nil, supplier.ErrInvalidScore
			}
		}
		return nil, err
	}
	return &created, nil
}

// ListBySupplier は仕入先の評価を古い順に取得します。
func (r *EvaluationRepository) ListBySupplier(ctx context.Context, organizationID, supplierID string) ([]*supplier.Evaluation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, organization_id, supplier_id, quality, delivery, price, service, comment, evaluated_at
          FROM supplier_evaluations
         WHERE organization_id = $1
           AND supplier_id = $2
         ORDER BY evaluated_at, id
    `, organizationID, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evaluations []*supplier.Evaluation
	for rows.Next() {
		var (
			e       supplier.Evaluation
			comment sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.SupplierID, &e.Quality, &e.Delivery, &e.Price, &e.Service, &comment, &e.EvaluatedAt); err != nil {
			return nil, err
		}
		e.Comment = stringPtr(comment)
		evaluations = append(evaluations, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return evaluations, nil
}

// PerformanceRepository は納入実績の永続化実装です。
type PerformanceRepository struct {
	pool pgdb.Queryer
}

// NewPerformanceRepository は PerformanceRepository を生成します。
func NewPerformanceRepository(pool pgdb.Queryer) *PerformanceRepository {
	return &PerformanceRepository{pool: pool}
}

// Create は納入実績を記録します。
func (r *PerformanceRepository) Create(ctx context.Context, p *supplier.Performance) (*supplier.Performance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	created := *p
	if err := exec.QueryRow(ctx, `
        INSERT INTO supplier_performances (organization_id, supplier_id, purchase_order_id, expected_date, received_date, on_time, ordered_quantity, received_quantity, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `, p.OrganizationID, p.SupplierID, p.PurchaseOrderID, nullableDate(p.ExpectedDate), dateOf(p.ReceivedDate),
		p.OnTime, p.OrderedQuantity, p.ReceivedQuantity, p.CreatedAt).Scan(&created.ID); err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == foreignKeyViolationCode {
			return nil, supplier.ErrSupplierNotFound
		}
		return nil, err
	}
	return &created, nil
}

// ListBySupplier は仕入先の納入実績を受領日の古い順に取得します。
func (r *PerformanceRepository) ListBySupplier(ctx context.Context, organizationID, supplierID string) ([]*supplier.Performance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, organization_id, supplier_id, purchase_order_id, expected_date, received_date, on_time, ordered_quantity, received_quantity, created_at
          FROM supplier_performances
         WHERE organization_id = $1
           AND supplier_id = $2
         ORDER BY received_date, id
    `, organizationID, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var performances []*supplier.Performance
	for rows.Next() {
		var (
			p        supplier.Performance
			expected sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.SupplierID, &p.PurchaseOrderID, &expected, &p.ReceivedDate,
			&p.OnTime, &p.OrderedQuantity, &p.ReceivedQuantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ExpectedDate = datePtr(expected)
		p.ReceivedDate = dateOf(p.ReceivedDate)
		performances = append(performances, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return performances, nil
}
