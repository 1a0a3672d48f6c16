package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/stockly/internal/core/employee"
	pgdb "github.com/ogurasousui/stockly/internal/platform/db/postgres"
)

const employeeColumns = `id, organization_id, name, document, department, position, email, status, hired_at, terminated_at, created_at, updated_at`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (organization_id, name, document, department, position, email, status, hired_at, terminated_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+employeeColumns,
		e.OrganizationID,
		e.Name,
		nullableString(e.Document),
		e.Department,
		e.Position,
		nullableString(e.Email),
		string(e.Status),
		nullableDate(e.HiredAt),
		nullableDate(e.TerminatedAt),
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET name = $1,
               document = $2,
               department = $3,
               position = $4,
               email = $5,
               status = $6,
               hired_at = $7,
               terminated_at = $8,
               updated_at = $9
         WHERE organization_id = $10
           AND id = $11
        RETURNING `+employeeColumns,
		e.Name,
		nullableString(e.Document),
		e.Department,
		e.Position,
		nullableString(e.Email),
		string(e.Status),
		nullableDate(e.HiredAt),
		nullableDate(e.TerminatedAt),
		e.UpdatedAt,
		e.OrganizationID,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, organizationID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, organizationID, id string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE organization_id = $1
           AND id = $2
         LIMIT 1
    `, organizationID, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByDocument は CPF で社員を取得します。
func (r *EmployeeRepository) FindByDocument(ctx context.Context, organizationID, document string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE organization_id = $1
           AND document = $2
         LIMIT 1
    `, organizationID, document)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	var b whereBuilder
	b.add("organization_id = ?", filter.OrganizationID)
	if filter.Status != nil {
		b.add("status = ?", string(*filter.Status))
	}
	if filter.Department != nil {
		b.add("department = ?", *filter.Department)
	}

	query := `
        SELECT ` + employeeColumns + `
          FROM employees` + b.where() + `
         ORDER BY created_at DESC, id DESC` + b.page(filter.Limit, filter.Offset)

	employees, err := r.query(ctx, query, b.args...)
	if err != nil {
		return nil, "", err
	}

	employees, next := trimPage(employees, filter.Limit, filter.Offset)
	return employees, next, nil
}

// ListActive は在籍中の社員を名前順にすべて取得します。
func (r *EmployeeRepository) ListActive(ctx context.Context, organizationID string) ([]*employee.Employee, error) {
	return r.query(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         WHERE organization_id = $1
           AND status = 'active'
         ORDER BY name, id
    `, organizationID)
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...any) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id, organizationID   string
		name                 string
		document, email      sql.NullString
		department, position string
		status               string
		hiredAt              sql.NullTime
		terminatedAt         sql.NullTime
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(
		&id,
		&organizationID,
		&name,
		&document,
		&department,
		&position,
		&email,
		&status,
		&hiredAt,
		&terminatedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	return &employee.Employee{
		ID:             id,
		OrganizationID: organizationID,
		Name:           name,
		Document:       stringPtr(document),
		Department:     department,
		Position:       position,
		Email:          stringPtr(email),
		Status:         employee.Status(status),
		HiredAt:        datePtr(hiredAt),
		TerminatedAt:   datePtr(terminatedAt),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrDocumentAlreadyExists
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "employees_organization_id_fkey" {
				return employee.ErrOrganizationNotFound
			}
			return err
		case checkViolationCode:
			return employee.ErrInvalidDateRange
		}
	}

	return err
}
