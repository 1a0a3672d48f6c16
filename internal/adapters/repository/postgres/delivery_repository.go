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

const deliveryColumns = `id, organization_id, epi_id, employee_id, quantity, delivered_at, expires_at, status, returned_at, term_id, notes, created_at, updated_at`

// DeliveryRepository は EPI 支給記録の永続化実装です。
type DeliveryRepository struct {
	pool pgdb.Queryer
}

// NewDeliveryRepository は DeliveryRepository を生成します。
func NewDeliveryRepository(pool pgdb.Queryer) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// Create は支給記録を登録します。
func (r *DeliveryRepository) Create(ctx context.Context, d *epi.Delivery) (*epi.Delivery, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO epi_deliveries (organization_id, epi_id, employee_id, quantity, delivered_at, expires_at, status, returned_at, term_id, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+deliveryColumns,
		d.OrganizationID,
		d.EPIID,
		d.EmployeeID,
		d.Quantity,
		dateOf(d.DeliveredAt),
		nullableDate(d.ExpiresAt),
		string(d.Status),
		nullableDate(d.ReturnedAt),
		nullableString(d.TermID),
		nullableString(d.Notes),
		d.CreatedAt,
		d.UpdatedAt,
	)

	created, err := scanDelivery(row)
	if err != nil {
		return nil, translateDeliveryPgError(err)
	}
	return created, nil
}

// Update は支給記録の状態を更新します。
func (r *DeliveryRepository) Update(ctx context.Context, d *epi.Delivery) (*epi.Delivery, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE epi_deliveries
           SET status = $1,
               returned_at = $2,
               expires_at = $3,
               notes = $4,
               updated_at = $5
         WHERE organization_id = $6
           AND id = $7
        RETURNING `+deliveryColumns,
		string(d.Status),
		nullableDate(d.ReturnedAt),
		nullableDate(d.ExpiresAt),
		nullableString(d.Notes),
		d.UpdatedAt,
		d.OrganizationID,
		d.ID,
	)

	updated, err := scanDelivery(row)
	if err != nil {
		return nil, translateDeliveryPgError(err)
	}
	return updated, nil
}

// FindByID は ID で支給記録を取得します。
func (r *DeliveryRepository) FindByID(ctx context.Context, organizationID, id string) (*epi.Delivery, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+deliveryColumns+`
          FROM epi_deliveries
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id)

	found, err := scanDelivery(row)
	if err != nil {
		return nil, translateDeliveryPgError(err)
	}
	return found, nil
}

// List は支給記録を新しい支給日順に取得します。
func (r *DeliveryRepository) List(ctx context.Context, filter epi.ListDeliveriesFilter) ([]*epi.Delivery, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.EmployeeID != nil {
		b.add("employee_id = ?", *filter.EmployeeID)
	}
	if filter.EPIID != nil {
		b.add("epi_id = ?", *filter.EPIID)
	}
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}

	query := `
        SELECT ` + deliveryColumns + `
          FROM epi_deliveries` + b.where() + `
         ORDER BY delivered_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	deliveries, err := r.query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}

	deliveries, next := trimPage(deliveries, filter.Limit, filter.Offset)
	return deliveries, next, nil
}

// ListInUse は使用中の支給記録をすべて取得します。
func (r *DeliveryRepository) ListInUse(ctx context.Context, organizationID string) ([]*epi.Delivery, error) {
	return r.query(ctx, `
        SELECT `+deliveryColumns+`
          FROM epi_deliveries
         WHERE organization_id = $1
           AND status = 'in_use'
         ORDER BY employee_id, delivered_at, id
    `, organizationID)
}

// ExpireOverdue は有効期限 (その日の 0 時 UTC) が now より前の使用中支給を expired にします。
// 判定境界は epi.Delivery.IsExpiredAt と同じで、期限当日は 0 時を過ぎた時点で期限切れです。
func (r *DeliveryRepository) ExpireOverdue(ctx context.Context, organizationID string, now time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE epi_deliveries
           SET status = 'expired',
               updated_at = $1
         WHERE organization_id = $2
           AND status = 'in_use'
           AND expires_at IS NOT NULL
           AND expires_at::timestamptz < $3
    `, now, organizationID, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *DeliveryRepository) query(ctx context.Context, query string, args ...any) ([]*epi.Delivery, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []*epi.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func scanDelivery(row pgx.Row) (*epi.Delivery, error) {
	var (
		d                     epi.Delivery
		status                string
		deliveredAt           time.Time
		expiresAt, returnedAt sql.NullTime
		termID, notes         sql.NullString
	)

	if err := row.Scan(
		&d.ID,
		&d.OrganizationID,
		&d.EPIID,
		&d.EmployeeID,
		&d.Quantity,
		&deliveredAt,
		&expiresAt,
		&status,
		&returnedAt,
		&termID,
		&notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, epi.ErrDeliveryNotFound
		}
		return nil, err
	}

	d.DeliveredAt = dateOf(deliveredAt)
	d.ExpiresAt = datePtr(expiresAt)
	d.Status = epi.DeliveryStatus(status)
	d.ReturnedAt = datePtr(returnedAt)
	d.TermID = stringPtr(termID)
	d.Notes = stringPtr(notes)
	return &d, nil
}

func translateDeliveryPgError(err error) error {
	if pgErr, ok := pgError(err); ok && pgErr.Code == foreignKeyViolationCode {
		switch pgErr.ConstraintName {
		case "epi_deliveries_epi_id_fkey":
			return epi.ErrEPINotFound
		case "epi_deliveries_term_id_fkey":
			return epi.ErrTermNotFound
		}
	}
	return err
}

// TermRepository は受領書の永続化実装です。
type TermRepository struct {
	pool pgdb.Queryer
}

// NewTermRepository は TermRepository を生成します。
func NewTermRepository(pool pgdb.Queryer) *TermRepository {
	return &TermRepository{pool: pool}
}

// Create は受領書を保存し、対象の支給記録へ受領書 ID を設定します。
// 既に別の受領書に紐づく支給が含まれる場合は ErrDeliveryAlreadyInTerm を返します。
// 呼び出し側のトランザクション内で実行してください。
func (r *TermRepository) Create(ctx context.Context, term *epi.DeliveryTerm) (*epi.DeliveryTerm, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	created := *term
	if err := exec.QueryRow(ctx, `
        INSERT INTO delivery_terms (organization_id, number, employee_id, issued_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, issued_at
    `, term.OrganizationID, term.Number, term.EmployeeID, term.IssuedAt).Scan(&created.ID, &created.IssuedAt); err != nil {
		return nil, err
	}

	tag, err := exec.Exec(ctx, `
        UPDATE epi_deliveries
           SET term_id = $1,
               updated_at = $2
         WHERE organization_id = $3
           AND id = ANY($4)
           AND term_id IS NULL
    `, created.ID, term.IssuedAt, term.OrganizationID, term.DeliveryIDs)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(term.DeliveryIDs)) {
		return nil, epi.ErrDeliveryAlreadyInTerm
	}

	created.DeliveryIDs = append([]string(nil), term.DeliveryIDs...)
	return &created, nil
}

// FindByID は受領書と紐づく支給記録 ID を取得します。
func (r *TermRepository) FindByID(ctx context.Context, organizationID, id string) (*epi.DeliveryTerm, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var term epi.DeliveryTerm
	if err := exec.QueryRow(ctx, `
        SELECT id, organization_id, number, employee_id, issued_at
          FROM delivery_terms
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id).Scan(&term.ID, &term.OrganizationID, &term.Number, &term.EmployeeID, &term.IssuedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, epi.ErrTermNotFound
		}
		return nil, err
	}

	rows, err := exec.Query(ctx, `
        SELECT id
          FROM epi_deliveries
         WHERE term_id = $1
         ORDER BY delivered_at, id
    `, term.ID)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	term.DeliveryIDs = ids
	return &term, nil
}
