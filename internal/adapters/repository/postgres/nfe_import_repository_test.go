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

	"github.com/ogurasousui/stockly/internal/core/nfe"
)

const testAccessKey = "35250611222333000181550010000012341000000014"

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestNFeImportRepository_Create(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := NewNFeImportRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO nfe_imports`)).
		WithArgs("org-1", testAccessKey, "1234", "1", "11222333000181", "Fornecedor", "batch-1", "loc-1", 2, 1, pgxmock.AnyArg(), now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "access_key", "number", "series", "emitter_cnpj", "emitter_name", "batch_id", "location_id", "imported_lines", "unmatched_lines", "total_value", "imported_at"}).
			AddRow("imp-1", "org-1", testAccessKey, "1234", "1", "11222333000181", "Fornecedor", "batch-1", "loc-1", 2, 1, "150.75", now))

	created, err := repo.Create(context.Background(), &nfe.Import{
		OrganizationID: "org-1",
		AccessKey:      testAccessKey,
		Number:         "1234",
		Series:         "1",
		EmitterCNPJ:    "11222333000181",
		EmitterName:    "Fornecedor",
		BatchID:        "batch-1",
		LocationID:     "loc-1",
		ImportedLines:  2,
		UnmatchedLines: 1,
		TotalValue:     decimal.RequireFromString("150.75"),
		ImportedAt:     now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "imp-1" || !created.TotalValue.Equal(decimal.RequireFromString("150.75")) {
		t.Fatalf("unexpected import: %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNFeImportRepository_Create_TranslatesConstraintErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pgErr   *pgconn.PgError
		wantErr error
	}{
		{
			name:    "duplicate access key",
			pgErr:   &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "nfe_imports_access_key_key"},
			wantErr: nfe.ErrAlreadyImported,
		},
		{
			name:    "unknown location",
			pgErr:   &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "nfe_imports_location_id_fkey"},
			wantErr: nfe.ErrInvalidLocation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock pool: %v", err)
			}
			defer mock.Close()

			repo := NewNFeImportRepository(mock)
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO nfe_imports`)).
				WithArgs(anyArgs(12)...).
				WillReturnError(tt.pgErr)

			_, err = repo.Create(context.Background(), &nfe.Import{OrganizationID: "org-1", AccessKey: testAccessKey, LocationID: "loc-1"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestNFeImportRepository_Exists(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewNFeImportRepository(mock)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("org-1", testAccessKey).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "org-1", testAccessKey)
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected access key to exist")
	}
}
