package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/organization"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const organizationColumns = `id, name, code, cnpj, status, created_at, updated_at`

// OrganizationRepository は PostgreSQL を利用した組織永続化の実装です。
type OrganizationRepository struct {
	pool pgdb.Queryer
}

// NewOrganizationRepository は OrganizationRepository を生成します。
func NewOrganizationRepository(pool pgdb.Queryer) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

// Create は組織を新規作成します。
func (r *OrganizationRepository) Create(ctx context.Context, o *organization.Organization) (*organization.Organization, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO organizations (name, code, cnpj, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+organizationColumns,
		o.Name, o.Code, nullableString(o.CNPJ), string(o.Status), o.CreatedAt, o.UpdatedAt)

	created, err := scanOrganization(row)
	if err != nil {
		return nil, translateOrganizationPgError(err)
	}
	return created, nil
}

// Update は組織情報を更新します。
func (r *OrganizationRepository) Update(ctx context.Context, o *organization.Organization) (*organization.Organization, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE organizations
           SET name = $1,
               code = $2,
               cnpj = $3,
               status = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING `+organizationColumns,
		o.Name, o.Code, nullableString(o.CNPJ), string(o.Status), o.UpdatedAt, o.ID)

	updated, err := scanOrganization(row)
	if err != nil {
		return nil, translateOrganizationPgError(err)
	}
	return updated, nil
}

// Delete は組織を削除します。所属データはカスケードで削除されます。
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return translateOrganizationPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return organization.ErrOrganizationNotFound
	}
	return nil
}

// FindByID は ID で組織を取得します。
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*organization.Organization, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+organizationColumns+`
          FROM organizations
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanOrganization(row)
	if err != nil {
		return nil, translateOrganizationPgError(err)
	}
	return found, nil
}

// FindByCode はコードで組織を取得します。
func (r *OrganizationRepository) FindByCode(ctx context.Context, code string) (*organization.Organization, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+organizationColumns+`
          FROM organizations
         WHERE code = $1
         LIMIT 1
    `, code)

	found, err := scanOrganization(row)
	if err != nil {
		return nil, translateOrganizationPgError(err)
	}
	return found, nil
}

// List は組織の一覧を取得します。
func (r *OrganizationRepository) List(ctx context.Context, filter organization.ListOrganizationsFilter) ([]*organization.Organization, string, error) {
	var b whereBuilder
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}

	query := `
        SELECT ` + organizationColumns + `
          FROM organizations` + b.where() + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var orgs []*organization.Organization
	for rows.Next() {
		found, err := scanOrganization(rows)
		if err != nil {
			return nil, "", err
		}
		orgs = append(orgs, found)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	orgs, next := trimPage(orgs, filter.Limit, filter.Offset)
	return orgs, next, nil
}

func scanOrganization(row pgx.Row) (*organization.Organization, error) {
	var (
		id, name, code, status string
		cnpj                   sql.NullString
		createdAt, updatedAt   time.Time
	)

	if err := row.Scan(&id, &name, &code, &cnpj, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, organization.ErrOrganizationNotFound
		}
		return nil, err
	}

	return &organization.Organization{
		ID:        id,
		Name:      name,
		Code:      code,
		CNPJ:      stringPtr(cnpj),
		Status:    organization.Status(status),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func translateOrganizationPgError(err error) error {
	if pgErr, ok := pgError(err); ok && pgErr.Code == uniqueViolationCode {
		return organization.ErrCodeAlreadyExists
	}
	return err
}
