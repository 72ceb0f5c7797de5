package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"

	"github.com/jadavkeshav/log-management/internal/ports"
)

func TestMemoryValidator(t *testing.T) {
	v := NewMemoryValidator(map[string]Key{
		"good-key":    {TenantID: "ws-1"},
		"revoked-key": {TenantID: "ws-2", Revoked: true},
		"expired-key": {TenantID: "ws-3", ExpiresAt: time.Now().Add(-time.Hour)},
	})

	tenant, err := v.Validate(context.Background(), "good-key")
	if err != nil {
		t.Fatalf("expected valid key, got %v", err)
	}
	if tenant != "ws-1" {
		t.Fatalf("expected tenant ws-1, got %s", tenant)
	}

	if _, err := v.Validate(context.Background(), "missing"); !errors.Is(err, ports.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
	if _, err := v.Validate(context.Background(), "revoked-key"); !errors.Is(err, ports.ErrCredentialRevoked) {
		t.Fatalf("expected revoked credential, got %v", err)
	}
	if _, err := v.Validate(context.Background(), "expired-key"); !errors.Is(err, ports.ErrCredentialExpired) {
		t.Fatalf("expected expired credential, got %v", err)
	}
}

func TestPostgresValidatorValid(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	v := NewPostgresValidator(db, "api_keys", zerolog.Nop())

	selectQuery := regexp.QuoteMeta("SELECT tenant_id, revoked, expires_at FROM api_keys WHERE key = $1")
	rows := sqlmock.NewRows([]string{"tenant_id", "revoked", "expires_at"}).AddRow("ws-1", false, nil)
	mock.ExpectQuery(selectQuery).WithArgs("good-key").WillReturnRows(rows)

	updateQuery := regexp.QuoteMeta("UPDATE api_keys SET last_used = $1 WHERE key = $2")
	mock.ExpectExec(updateQuery).WithArgs(sqlmock.AnyArg(), "good-key").WillReturnResult(sqlmock.NewResult(0, 1))

	tenant, err := v.Validate(context.Background(), "good-key")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if tenant != "ws-1" {
		t.Fatalf("expected tenant ws-1, got %s", tenant)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresValidatorUnknownKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	v := NewPostgresValidator(db, "api_keys", zerolog.Nop())

	selectQuery := regexp.QuoteMeta("SELECT tenant_id, revoked, expires_at FROM api_keys WHERE key = $1")
	mock.ExpectQuery(selectQuery).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "revoked", "expires_at"}))

	if _, err := v.Validate(context.Background(), "nope"); !errors.Is(err, ports.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
}

func TestPostgresValidatorExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	v := NewPostgresValidator(db, "api_keys", zerolog.Nop())

	selectQuery := regexp.QuoteMeta("SELECT tenant_id, revoked, expires_at FROM api_keys WHERE key = $1")
	rows := sqlmock.NewRows([]string{"tenant_id", "revoked", "expires_at"}).AddRow("ws-1", false, time.Now().Add(-time.Minute))
	mock.ExpectQuery(selectQuery).WithArgs("old-key").WillReturnRows(rows)

	if _, err := v.Validate(context.Background(), "old-key"); !errors.Is(err, ports.ErrCredentialExpired) {
		t.Fatalf("expected expired credential, got %v", err)
	}
}
