package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/nfe"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const nfeImportColumns = `id, organization_id, access_key, number, series, emitter_cnpj, emitter_name, batch_id, location_id, imported_lines, unmatched_lines, total_value, imported_at`

// NFeImportRepository は NF-e 取り込み記録の永続化実装です。
type NFeImportRepository struct {
	pool pgdb.Queryer
}

// NewNFeImportRepository は NFeImportRepository を生成します。
func NewNFeImportRepository(pool pgdb.Queryer) *NFeImportRepository {
	return &NFeImportRepository{pool: pool}
}

// Exists はアクセスキーが取り込み済みかを返します。
func (r *NFeImportRepository) Exists(ctx context.Context, organizationID, accessKey string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1
              FROM nfe_imports
             WHERE organization_id = $1
               AND access_key = $2
        )
    `, organizationID, accessKey).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create は取り込み記録を保存します。同じアクセスキーは ErrAlreadyImported になります。
func (r *NFeImportRepository) Create(ctx context.Context, imp *nfe.Import) (*nfe.Import, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO nfe_imports (organization_id, access_key, number, series, emitter_cnpj, emitter_name, batch_id, location_id, imported_lines, unmatched_lines, total_value, imported_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+nfeImportColumns,
		imp.OrganizationID, imp.AccessKey, imp.Number, imp.Series, imp.EmitterCNPJ, imp.EmitterName,
		imp.BatchID, imp.LocationID, imp.ImportedLines, imp.UnmatchedLines, imp.TotalValue, imp.ImportedAt)

	var created nfe.Import
	if err := scanNFeImport(row, &created); err != nil {
		if pgErr, ok := pgError(err); ok {
			switch pgErr.Code {
			case uniqueViolationCode:
				return nil, nfe.ErrAlreadyImported
			case foreignKeyViolationCode:
				return nil, nfe.ErrInvalidLocation
			}
		}
		return nil, err
	}
	return &created, nil
}

// List は取り込み記録を新しい順に取得します。
func (r *NFeImportRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*nfe.Import, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", organizationID)

	query := `
        SELECT ` + nfeImportColumns + `
          FROM nfe_imports` + b.where() + `
         ORDER BY imported_at DESC, id DESC` + b.page(limit, offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var imports []*nfe.Import
	for rows.Next() {
		var imp nfe.Import
		if err := scanNFeImport(rows, &imp); err != nil {
			return nil, "", err
		}
		imports = append(imports, &imp)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	imports, next := trimPage(imports, limit, offset)
	return imports, next, nil
}

func scanNFeImport(row pgx.Row, imp *nfe.Import) error {
	return row.Scan(
		&imp.ID,
		&imp.OrganizationID,
		&imp.AccessKey,
		&imp.Number,
		&imp.Series,
		&imp.EmitterCNPJ,
		&imp.EmitterName,
		&imp.BatchID,
		&imp.LocationID,
		&imp.ImportedLines,
		&imp.UnmatchedLines,
		&imp.TotalValue,
		&imp.ImportedAt,
	)
}
