package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/epi"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const epiColumns = `id, organization_id, name, category, ca_number, validity_days, stock_quantity, minimum_stock, created_at, updated_at`

// EPIRepository は PostgreSQL を利用した EPI 種別の永続化実装です。
type EPIRepository struct {
	pool pgdb.Queryer
}

// NewEPIRepository は EPIRepository を生成します。
func NewEPIRepository(pool pgdb.Queryer) *EPIRepository {
	return &EPIRepository{pool: pool}
}

// Create は EPI を新規登録します。
func (r *EPIRepository) Create(ctx context.Context, e *epi.EPI) (*epi.EPI, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO epis (organization_id, name, category, ca_number, validity_days, stock_quantity, minimum_stock, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING `+epiColumns,
		e.OrganizationID, e.Name, e.Category, nullableString(e.CANumber),
		e.ValidityDays, e.StockQuantity, e.MinimumStock, e.CreatedAt, e.UpdatedAt)

	created, err := scanEPI(row)
	if err != nil {
		return nil, translateEPIPgError(err)
	}
	return created, nil
}

// Update は EPI のマスタ情報を更新します。在庫数は AdjustStock でのみ変更します。
func (r *EPIRepository) Update(ctx context.Context, e *epi.EPI) (*epi.EPI, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE epis
           SET name = $1,
               category = $2,
               ca_number = $3,
               validity_days = $4,
               minimum_stock = $5,
               updated_at = $6
         WHERE organization_id = $7
           AND id = $8
        RETURNING `+epiColumns,
		e.Name, e.Category, nullableString(e.CANumber), e.ValidityDays, e.MinimumStock,
		e.UpdatedAt, e.OrganizationID, e.ID)

	updated, err := scanEPI(row)
	if err != nil {
		return nil, translateEPIPgError(err)
	}
	return updated, nil
}

// Delete は EPI を削除します。支給記録から参照されている場合は削除できません。
func (r *EPIRepository) Delete(ctx context.Context, organizationID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM epis WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return translateEPIPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return epi.ErrEPINotFound
	}
	return nil
}

// FindByID は ID で EPI を取得します。
func (r *EPIRepository) FindByID(ctx context.Context, organizationID, id string) (*epi.EPI, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+epiColumns+`
          FROM epis
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id)

	found, err := scanEPI(row)
	if err != nil {
		return nil, translateEPIPgError(err)
	}
	return found, nil
}

// List は EPI の一覧を取得します。
func (r *EPIRepository) List(ctx context.Context, filter epi.ListEPIsFilter) ([]*epi.EPI, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.Category != nil {
		b.add("category = ?", *filter.Category)
	}
	where := b.where()
	if filter.LowStockOnly {
		where += " AND stock_quantity < minimum_stock"
	}

	query := `
        SELECT ` + epiColumns + `
          FROM epis` + where + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	items, err := r.query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}

	items, next := trimPage(items, filter.Limit, filter.Offset)
	return items, next, nil
}

// ListAll は組織の EPI をカテゴリ・名前順ですべて取得します。
func (r *EPIRepository) ListAll(ctx context.Context, organizationID string) ([]*epi.EPI, error) {
	return r.query(ctx, `
        SELECT `+epiColumns+`
          FROM epis
         WHERE organization_id = $1
         ORDER BY category, name, id
    `, organizationID)
}

// AdjustStock は在庫数を delta だけ増減します。
// 負在庫は CHECK 制約で拒否され ErrInsufficientStock になります。
func (r *EPIRepository) AdjustStock(ctx context.Context, organizationID, id string, delta int, updatedAt time.Time) (*epi.EPI, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE epis
           SET stock_quantity = stock_quantity + $1,
               updated_at = $2
         WHERE organization_id = $3
           AND id = $4
        RETURNING `+epiColumns,
		delta, updatedAt, organizationID, id)

	updated, err := scanEPI(row)
	if err != nil {
		return nil, translateEPIPgError(err)
	}
	return updated, nil
}

func (r *EPIRepository) query(ctx context.Context, query string, args ...any) ([]*epi.EPI, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*epi.EPI
	for rows.Next() {
		item, err := scanEPI(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanEPI(row pgx.Row) (*epi.EPI, error) {
	var (
		item                 epi.EPI
		caNumber             sql.NullString
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(
		&item.ID,
		&item.OrganizationID,
		&item.Name,
		&item.Category,
		&caNumber,
		&item.ValidityDays,
		&item.StockQuantity,
		&item.MinimumStock,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, epi.ErrEPINotFound
		}
		return nil, err
	}

	item.CANumber = stringPtr(caNumber)
	item.CreatedAt = createdAt
	item.UpdatedAt = updatedAt
	return &item, nil
}

func translateEPIPgError(err error) error {
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case checkViolationCode:
			if pgErr.ConstraintName == "epis_stock_quantity_check" {
				return epi.ErrInsufficientStock
			}
		case foreignKeyViolationCode:
			return epi.ErrEPIInUse
		}
	}
	return err
}

const requirementColumns = `id, organization_id, category, department, position, mandatory, notes, created_at`

// RequirementRepository は EPI 要件の永続化実装です。
type RequirementRepository struct {
	pool pgdb.Queryer
}

// NewRequirementRepository は RequirementRepository を生成します。
func NewRequirementRepository(pool pgdb.Queryer) *RequirementRepository {
	return &RequirementRepository{pool: pool}
}

// Create は要件を登録します。
func (r *RequirementRepository) Create(ctx context.Context, req *epi.Requirement) (*epi.Requirement, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO epi_requirements (organization_id, category, department, position, mandatory, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+requirementColumns,
		req.OrganizationID, req.Category, nullableString(req.Department), nullableString(req.Position),
		req.Mandatory, nullableString(req.Notes), req.CreatedAt)

	created, err := scanRequirement(row)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == checkViolationCode {
			return nil, epi.ErrInvalidRequirement
		}
		return nil, err
	}
	return created, nil
}

// Delete は要件を削除します。
func (r *RequirementRepository) Delete(ctx context.Context, organizationID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM epi_requirements WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return epi.ErrRequirementNotFound
	}
	return nil
}

// List は組織の要件をすべて取得します。
func (r *RequirementRepository) List(ctx context.Context, organizationID string) ([]*epi.Requirement, error) {
	return r.query(ctx, `
        SELECT `+requirementColumns+`
          FROM epi_requirements
         WHERE organization_id = $1
         ORDER BY category, created_at, id
    `, organizationID)
}

// ListMatching は部署または役職が一致する要件を取得します。空文字は一致対象になりません。
func (r *RequirementRepository) ListMatching(ctx context.Context, organizationID, department, position string) ([]*epi.Requirement, error) {
	return r.query(ctx, `
        SELECT `+requirementColumns+`
          FROM epi_requirements
         WHERE organization_id = $1
           AND ((department IS NOT NULL AND $2 <> '' AND department = $2)
             OR (position IS NOT NULL AND $3 <> '' AND position = $3))
         ORDER BY category, created_at, id
    `, organizationID, department, position)
}

func (r *RequirementRepository) query(ctx context.Context, query string, args ...any) ([]*epi.Requirement, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*epi.Requirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

func scanRequirement(row pgx.Row) (*epi.Requirement, error) {
	var (
		req                         epi.Requirement
		department, position, notes sql.NullString
	)

	if err := row.Scan(
		&req.ID,
		&req.OrganizationID,
		&req.Category,
		&department,
		&position,
		&req.Mandatory,
		&notes,
		&req.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, epi.ErrRequirementNotFound
		}
		return nil, err
	}

	req.Department = stringPtr(department)
	req.Position = stringPtr(position)
	req.Notes = stringPtr(notes)
	return &req, nil
}
